package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"leadmagnet/api/aggregate"
	"leadmagnet/api/heatmap"
	"leadmagnet/api/models"
)

// SessionRepository is the raw session warehouse.
type SessionRepository interface {
	InsertSessions(ctx context.Context, sessions []models.RawSession) error
	ListSessions(ctx context.Context, documentID string, since time.Time) ([]models.RawSession, error)
	ListSessionsSince(ctx context.Context, since time.Time) ([]models.RawSession, error)
	ListActiveDocuments(ctx context.Context, since time.Time) ([]string, error)
}

// SnapshotRepository keeps the latest computed snapshot per document and window.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot models.DocumentAnalytics) error
	GetSnapshot(ctx context.Context, documentID string, windowDays int) (*models.DocumentAnalytics, error)
}

// AnalyticsService ingests raw sessions and derives analytics from them on
// demand. Raw sessions are the source of truth; snapshots are a cache that
// is overwritten on every recomputation.
type AnalyticsService struct {
	sessions    SessionRepository
	snapshots   SnapshotRepository
	screenshots heatmap.ScreenshotSource
	opts        aggregate.Options
	now         func() time.Time
}

func NewAnalyticsService(sessions SessionRepository, snapshots SnapshotRepository, screenshots heatmap.ScreenshotSource, opts aggregate.Options) *AnalyticsService {
	return &AnalyticsService{
		sessions:    sessions,
		snapshots:   snapshots,
		screenshots: screenshots,
		opts:        opts,
		now:         time.Now,
	}
}

// SetClock replaces the time source.
func (s *AnalyticsService) SetClock(now func() time.Time) {
	s.now = now
}

// IngestSession stores one finished session.
func (s *AnalyticsService) IngestSession(ctx context.Context, session models.RawSession) error {
	if err := s.sessions.InsertSessions(ctx, []models.RawSession{session}); err != nil {
		return fmt.Errorf("failed to store session %s: %w", session.SessionID, err)
	}
	return nil
}

func (s *AnalyticsService) windowSessions(ctx context.Context, documentID string, windowDays int, now time.Time) ([]models.RawSession, error) {
	sessions, err := s.sessions.ListSessions(ctx, documentID, now.AddDate(0, 0, -windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions for document %s: %w", documentID, err)
	}
	return aggregate.InWindow(sessions, windowDays, now), nil
}

// RefreshDocumentAnalytics recomputes a document's snapshot from raw
// sessions and overwrites the stored copy. A failed write is logged and the
// fresh snapshot is still returned.
func (s *AnalyticsService) RefreshDocumentAnalytics(ctx context.Context, documentID string, windowDays int) (models.DocumentAnalytics, error) {
	now := s.now()
	sessions, err := s.windowSessions(ctx, documentID, windowDays, now)
	if err != nil {
		return models.DocumentAnalytics{}, err
	}

	snapshot := aggregate.DocumentAnalytics(documentID, windowDays, now, sessions, s.opts)
	if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		log.Printf("Error saving analytics snapshot for document %s (%dd): %v", documentID, windowDays, err)
	}
	return snapshot, nil
}

// CachedDocumentAnalytics returns the last persisted snapshot without recomputing.
func (s *AnalyticsService) CachedDocumentAnalytics(ctx context.Context, documentID string, windowDays int) (*models.DocumentAnalytics, error) {
	return s.snapshots.GetSnapshot(ctx, documentID, windowDays)
}

func (s *AnalyticsService) ScrollHeatmap(ctx context.Context, documentID string, windowDays int) ([]models.ScrollHeatmapRow, error) {
	sessions, err := s.windowSessions(ctx, documentID, windowDays, s.now())
	if err != nil {
		return nil, err
	}
	return aggregate.ScrollHeatmap(sessions), nil
}

func (s *AnalyticsService) ParagraphEngagement(ctx context.Context, documentID string, windowDays int) ([]models.ParagraphMetrics, error) {
	sessions, err := s.windowSessions(ctx, documentID, windowDays, s.now())
	if err != nil {
		return nil, err
	}
	return aggregate.ParagraphEngagement(sessions), nil
}

func (s *AnalyticsService) PixelBins(ctx context.Context, documentID string, windowDays int) ([]models.PixelBin, error) {
	sessions, err := s.windowSessions(ctx, documentID, windowDays, s.now())
	if err != nil {
		return nil, err
	}
	return aggregate.SessionPixelBins(sessions), nil
}

func (s *AnalyticsService) DwellTotals(ctx context.Context, documentID string, windowDays int) (models.DwellHistogram, error) {
	sessions, err := s.windowSessions(ctx, documentID, windowDays, s.now())
	if err != nil {
		return nil, err
	}
	return aggregate.DwellTotals(sessions), nil
}

// RenderHeatmap draws the document's merged pixel bins over its reference
// screenshot. A missing screenshot yields a placeholder, not an error.
func (s *AnalyticsService) RenderHeatmap(ctx context.Context, documentID string, windowDays int) (heatmap.Result, error) {
	bins, err := s.PixelBins(ctx, documentID, windowDays)
	if err != nil {
		return heatmap.Result{}, err
	}

	if s.screenshots == nil {
		return heatmap.Render(nil, bins), nil
	}
	ref, err := s.screenshots.Screenshot(documentID)
	if err != nil {
		if !errors.Is(err, heatmap.ErrNoScreenshot) {
			log.Printf("Error loading screenshot for document %s: %v", documentID, err)
		}
		ref = nil
	}
	return heatmap.Render(ref, bins), nil
}

// VisitorJourneys groups every document's sessions in the window by device.
func (s *AnalyticsService) VisitorJourneys(ctx context.Context, windowDays int) ([]models.VisitorJourney, error) {
	now := s.now()
	sessions, err := s.sessions.ListSessionsSince(ctx, now.AddDate(0, 0, -windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return aggregate.VisitorJourneys(aggregate.InWindow(sessions, windowDays, now)), nil
}

// RefreshActive recomputes snapshots for every document with sessions inside
// the largest window, once per window. Failures are logged and skipped. It
// returns the number of snapshots refreshed.
func (s *AnalyticsService) RefreshActive(ctx context.Context, windows []int) (int, error) {
	largest := 0
	for _, w := range windows {
		if w > largest {
			largest = w
		}
	}
	if largest == 0 {
		return 0, nil
	}

	documents, err := s.sessions.ListActiveDocuments(ctx, s.now().AddDate(0, 0, -largest))
	if err != nil {
		return 0, fmt.Errorf("failed to list active documents: %w", err)
	}

	refreshed := 0
	for _, documentID := range documents {
		for _, w := range windows {
			if ctx.Err() != nil {
				return refreshed, ctx.Err()
			}
			if _, err := s.RefreshDocumentAnalytics(ctx, documentID, w); err != nil {
				log.Printf("Error refreshing analytics for document %s (%dd): %v", documentID, w, err)
				continue
			}
			refreshed++
		}
	}
	return refreshed, nil
}
