package main

import (
	"context"
	"fmt"

	"leadmagnet/api/config"
	"leadmagnet/api/database"
	"leadmagnet/api/heatmap"
	"leadmagnet/api/services"
	"leadmagnet/api/store"
)

// backend is the analytics service wired to the production databases.
type backend struct {
	cfg       *config.Config
	analytics *services.AnalyticsService
	close     func()
}

func openBackend(ctx context.Context, globals *GlobalFlags) (*backend, error) {
	if err := globals.apply(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	pg, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	ch, err := database.NewClickHouseDB(cfg.ClickHouse)
	if err != nil {
		pg.Close()
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		ch.Close()
		return nil, err
	}

	analytics := services.NewAnalyticsService(
		store.NewSessionStore(ch),
		store.NewSnapshotStore(pg.DB),
		heatmap.DirScreenshots{Dir: cfg.ScreenshotDir},
		cfg.Aggregation,
	)
	return &backend{
		cfg:       cfg,
		analytics: analytics,
		close: func() {
			ch.Close()
			pg.Close()
		},
	}, nil
}
