package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"leadmagnet/api/utils"
)

// Execute implements the go-flags Commander interface for RecomputeCommand.
func (c *RecomputeCommand) Execute(args []string) error {
	if c.Document == "" && !c.All {
		return errors.New("either --document or --all is required")
	}
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

	if c.All {
		n, err := b.analytics.RefreshActive(ctx, b.cfg.RefreshWindows)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Refreshed %d snapshots\n", n)
		return nil
	}

	snapshot, err := b.analytics.RefreshDocumentAnalytics(ctx, c.Document, days)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}
