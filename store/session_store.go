package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"leadmagnet/api/database"
	"leadmagnet/api/models"
)

// SessionStore persists raw sessions in ClickHouse.
type SessionStore struct {
	DB *database.ClickHouseClient
}

func NewSessionStore(chClient *database.ClickHouseClient) *SessionStore {
	return &SessionStore{
		DB: chClient,
	}
}

const sessionColumns = `
	session_id, document_id, browser_id, user_id, email, start_time, end_time,
	tz_offset_seconds, duration, max_scroll_percentage, scroll_event_count,
	scroll_events, dwell_histogram, pixel_bins, paragraphs, container_scroll,
	user_agent, referrer, viewport_width, viewport_height`

// sessionRow mirrors one raw_sessions row. Nested collections travel as JSON
// strings.
type sessionRow struct {
	SessionID           string
	DocumentID          string
	BrowserID           string
	UserID              string
	Email               string
	StartTime           time.Time
	EndTime             time.Time
	TZOffsetSeconds     int32
	Duration            uint32
	MaxScrollPercentage float64
	ScrollEventCount    uint32
	ScrollEvents        string
	DwellHistogram      string
	PixelBins           string
	Paragraphs          string
	ContainerScroll     uint8
	UserAgent           string
	Referrer            string
	ViewportWidth       uint32
	ViewportHeight      uint32
}

func toRow(s models.RawSession) (sessionRow, error) {
	_, offset := s.StartTime.Zone()

	scrollEvents, err := marshalJSON(s.ScrollEvents, "[]")
	if err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode scroll events: %w", err)
	}
	dwell, err := marshalJSON(s.DwellHistogram.Normalize(), "{}")
	if err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode dwell histogram: %w", err)
	}
	pixels, err := marshalJSON(s.PixelBins, "[]")
	if err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode pixel bins: %w", err)
	}
	paragraphs, err := marshalJSON(s.Paragraphs, "[]")
	if err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode paragraphs: %w", err)
	}

	var container uint8
	if s.ContainerScroll {
		container = 1
	}

	return sessionRow{
		SessionID:           s.SessionID,
		DocumentID:          s.DocumentID,
		BrowserID:           s.BrowserID,
		UserID:              s.UserID,
		Email:               s.Email,
		StartTime:           s.StartTime.UTC(),
		EndTime:             s.EndTime.UTC(),
		TZOffsetSeconds:     int32(offset),
		Duration:            uint32(s.Duration),
		MaxScrollPercentage: s.MaxScrollPercentage,
		ScrollEventCount:    uint32(s.ScrollEventCount),
		ScrollEvents:        scrollEvents,
		DwellHistogram:      dwell,
		PixelBins:           pixels,
		Paragraphs:          paragraphs,
		ContainerScroll:     container,
		UserAgent:           s.UserAgent,
		Referrer:            s.Referrer,
		ViewportWidth:       uint32(s.Viewport.Width),
		ViewportHeight:      uint32(s.Viewport.Height),
	}, nil
}

func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

// fromRow restores a session, including the visitor's UTC offset.
func fromRow(r sessionRow) (models.RawSession, error) {
	loc := time.FixedZone("", int(r.TZOffsetSeconds))
	s := models.RawSession{
		SessionID:           r.SessionID,
		DocumentID:          r.DocumentID,
		BrowserID:           r.BrowserID,
		UserID:              r.UserID,
		Email:               r.Email,
		StartTime:           r.StartTime.In(loc),
		EndTime:             r.EndTime.In(loc),
		Duration:            int(r.Duration),
		MaxScrollPercentage: r.MaxScrollPercentage,
		ScrollEventCount:    int(r.ScrollEventCount),
		ContainerScroll:     r.ContainerScroll != 0,
		UserAgent:           r.UserAgent,
		Referrer:            r.Referrer,
		Viewport:            models.Viewport{Width: int(r.ViewportWidth), Height: int(r.ViewportHeight)},
	}

	if err := unmarshalJSON(r.ScrollEvents, &s.ScrollEvents); err != nil {
		return s, fmt.Errorf("failed to decode scroll events: %w", err)
	}
	if err := unmarshalJSON(r.DwellHistogram, &s.DwellHistogram); err != nil {
		return s, fmt.Errorf("failed to decode dwell histogram: %w", err)
	}
	if err := unmarshalJSON(r.PixelBins, &s.PixelBins); err != nil {
		return s, fmt.Errorf("failed to decode pixel bins: %w", err)
	}
	if err := unmarshalJSON(r.Paragraphs, &s.Paragraphs); err != nil {
		return s, fmt.Errorf("failed to decode paragraphs: %w", err)
	}
	s.DwellHistogram = s.DwellHistogram.Normalize()
	return s, nil
}

func unmarshalJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

// InsertSessions batch-inserts sessions. Sessions that fail to encode are
// logged and skipped.
func (s *SessionStore) InsertSessions(ctx context.Context, sessions []models.RawSession) error {
	if len(sessions) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, "INSERT INTO raw_sessions ("+sessionColumns+")")
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, session := range sessions {
		r, err := toRow(session)
		if err != nil {
			log.Printf("Error encoding session %s: %v", session.SessionID, err)
			continue
		}
		err = batch.Append(
			r.SessionID,
			r.DocumentID,
			r.BrowserID,
			r.UserID,
			r.Email,
			r.StartTime,
			r.EndTime,
			r.TZOffsetSeconds,
			r.Duration,
			r.MaxScrollPercentage,
			r.ScrollEventCount,
			r.ScrollEvents,
			r.DwellHistogram,
			r.PixelBins,
			r.Paragraphs,
			r.ContainerScroll,
			r.UserAgent,
			r.Referrer,
			r.ViewportWidth,
			r.ViewportHeight,
		)
		if err != nil {
			log.Printf("Error appending session to batch (SessionID: %s): %v", session.SessionID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Successfully inserted %d sessions.", len(sessions))
	return nil
}

// ListSessions returns a document's sessions that started at or after since.
func (s *SessionStore) ListSessions(ctx context.Context, documentID string, since time.Time) ([]models.RawSession, error) {
	query := "SELECT " + sessionColumns + `
		FROM raw_sessions FINAL
		WHERE document_id = ? AND start_time >= ?
		ORDER BY start_time ASC, session_id ASC`
	return s.querySessions(ctx, query, documentID, since.UTC())
}

// ListSessionsSince returns every document's sessions that started at or
// after since.
func (s *SessionStore) ListSessionsSince(ctx context.Context, since time.Time) ([]models.RawSession, error) {
	query := "SELECT " + sessionColumns + `
		FROM raw_sessions FINAL
		WHERE start_time >= ?
		ORDER BY start_time ASC, session_id ASC`
	return s.querySessions(ctx, query, since.UTC())
}

func (s *SessionStore) querySessions(ctx context.Context, query string, args ...any) ([]models.RawSession, error) {
	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	results := []models.RawSession{}
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(
			&r.SessionID,
			&r.DocumentID,
			&r.BrowserID,
			&r.UserID,
			&r.Email,
			&r.StartTime,
			&r.EndTime,
			&r.TZOffsetSeconds,
			&r.Duration,
			&r.MaxScrollPercentage,
			&r.ScrollEventCount,
			&r.ScrollEvents,
			&r.DwellHistogram,
			&r.PixelBins,
			&r.Paragraphs,
			&r.ContainerScroll,
			&r.UserAgent,
			&r.Referrer,
			&r.ViewportWidth,
			&r.ViewportHeight,
		); err != nil {
			log.Printf("Error scanning session row: %v", err)
			continue
		}
		session, err := fromRow(r)
		if err != nil {
			log.Printf("Skipping malformed session %s: %v", r.SessionID, err)
			continue
		}
		results = append(results, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during session query: %w", err)
	}
	return results, nil
}

// ListActiveDocuments returns the ids of documents with sessions since the
// given instant.
func (s *SessionStore) ListActiveDocuments(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT DISTINCT document_id
		FROM raw_sessions
		WHERE start_time >= ?
		ORDER BY document_id ASC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query active documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			log.Printf("Error scanning document id: %v", err)
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during active documents query: %w", err)
	}
	return ids, nil
}
