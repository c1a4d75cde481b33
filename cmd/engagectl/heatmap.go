package main

import (
	"context"
	"fmt"
	"os"

	"leadmagnet/api/heatmap"
	"leadmagnet/api/utils"
)

// Execute implements the go-flags Commander interface for HeatmapCommand.
func (c *HeatmapCommand) Execute(args []string) error {
	days, err := utils.ParseWindowDays(c.Days)
	if err != nil {
		return err
	}

	ctx := context.Background()
	b, err := openBackend(ctx, c.globals)
	if err != nil {
		return err
	}
	defer b.close()

	result, err := b.analytics.RenderHeatmap(ctx, c.Document, days)
	if err != nil {
		return err
	}
	data, err := heatmap.EncodePNG(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return fmt.Errorf("writing heatmap: %w", err)
	}

	if result.Placeholder {
		fmt.Fprintf(c.out, "No heatmap data for %s; wrote placeholder to %s\n", c.Document, c.Out)
		return nil
	}
	fmt.Fprintf(c.out, "Wrote heatmap for %s to %s\n", c.Document, c.Out)
	return nil
}
