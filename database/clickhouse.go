package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"leadmagnet/api/config"
)

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

// rawSessionsDDL keeps one row per (document_id, session_id); a repeated
// delivery replaces the earlier row at merge time and FINAL reads collapse it.
const rawSessionsDDL = `
	CREATE TABLE IF NOT EXISTS raw_sessions (
		session_id            String,
		document_id           String,
		browser_id            String,
		user_id               String,
		email                 String,
		start_time            DateTime64(3, 'UTC'),
		end_time              DateTime64(3, 'UTC'),
		tz_offset_seconds     Int32,
		duration              UInt32,
		max_scroll_percentage Float64,
		scroll_event_count    UInt32,
		scroll_events         String,
		dwell_histogram       String,
		pixel_bins            String,
		paragraphs            String,
		container_scroll      UInt8,
		user_agent            String,
		referrer              String,
		viewport_width        UInt32,
		viewport_height       UInt32,
		inserted_at           DateTime64(3, 'UTC') DEFAULT now64(3)
	)
	ENGINE = ReplacingMergeTree(inserted_at)
	PARTITION BY toYYYYMM(start_time)
	ORDER BY (document_id, session_id)
`

func NewClickHouseDB(cfg config.ClickHouseConfig) (*ClickHouseClient, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.Database == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST, CLICKHOUSE_NATIVE_PORT, or CLICKHOUSE_DB_NAME environment variables are not set")
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "leadmagnet-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Println("Successfully connected to ClickHouse database via Native TCP!")
	return &ClickHouseClient{Conn: conn}, nil
}

// EnsureSchema creates the raw session table if it does not exist.
func (c *ClickHouseClient) EnsureSchema(ctx context.Context) error {
	if err := c.Conn.Exec(ctx, rawSessionsDDL); err != nil {
		return fmt.Errorf("failed to create raw_sessions table: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		log.Println("ClickHouse connection closed.")
	}
}
