package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

type DBClient struct {
	DB *sql.DB
}

// snapshotsDDL holds the latest snapshot per (document, window). Each
// recomputation overwrites the row.
const snapshotsDDL = `
	CREATE TABLE IF NOT EXISTS document_analytics (
		document_id TEXT        NOT NULL,
		window_days INTEGER     NOT NULL,
		payload     JSONB       NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (document_id, window_days)
	)
`

func NewPostgresDB(dbURL string) (*DBClient, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	log.Println("Successfully connected to PostgreSQL database!")
	return &DBClient{DB: db}, nil
}

// EnsureSchema creates the snapshot table if it does not exist.
func (c *DBClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, snapshotsDDL); err != nil {
		return fmt.Errorf("failed to create document_analytics table: %w", err)
	}
	return nil
}

func (c *DBClient) Close() {
	if c.DB != nil {
		err := c.DB.Close()
		if err != nil {
			log.Printf("Error closing database connection: %v", err)
		} else {
			log.Println("PostgreSQL database connection closed.")
		}
	}
}
