package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"leadmagnet/api/models"
)

var ErrSnapshotNotFound = errors.New("analytics snapshot not found")

// SnapshotStore keeps the latest DocumentAnalytics per document and window
// in PostgreSQL.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveSnapshot overwrites the stored snapshot for the same document and window.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot models.DocumentAnalytics) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO document_analytics (document_id, window_days, payload, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id, window_days)
		DO UPDATE SET payload = EXCLUDED.payload, computed_at = EXCLUDED.computed_at
	`
	_, err = s.db.ExecContext(ctx, query, snapshot.DocumentID, snapshot.WindowDays, string(payload), snapshot.ComputedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot for document %s: %w", snapshot.DocumentID, err)
	}
	return nil
}

// GetSnapshot returns the last persisted snapshot or ErrSnapshotNotFound.
func (s *SnapshotStore) GetSnapshot(ctx context.Context, documentID string, windowDays int) (*models.DocumentAnalytics, error) {
	query := `
		SELECT payload
		FROM document_analytics
		WHERE document_id = $1 AND window_days = $2
	`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, documentID, windowDays).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snapshot models.DocumentAnalytics
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}
