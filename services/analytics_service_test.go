package services

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadmagnet/api/aggregate"
	"leadmagnet/api/heatmap"
	"leadmagnet/api/models"
	"leadmagnet/api/store"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeSessions struct {
	mu       sync.Mutex
	sessions []models.RawSession
	err      error
}

func (f *fakeSessions) InsertSessions(_ context.Context, sessions []models.RawSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sessions = append(f.sessions, sessions...)
	return nil
}

func (f *fakeSessions) ListSessions(_ context.Context, documentID string, since time.Time) ([]models.RawSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RawSession
	for _, s := range f.sessions {
		if s.DocumentID == documentID && !s.StartTime.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) ListSessionsSince(_ context.Context, since time.Time) ([]models.RawSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RawSession
	for _, s := range f.sessions {
		if !s.StartTime.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) ListActiveDocuments(_ context.Context, since time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	seen := map[string]bool{}
	var ids []string
	for _, s := range f.sessions {
		if !s.StartTime.Before(since) && !seen[s.DocumentID] {
			seen[s.DocumentID] = true
			ids = append(ids, s.DocumentID)
		}
	}
	return ids, nil
}

type snapshotKey struct {
	documentID string
	windowDays int
}

type fakeSnapshots struct {
	mu    sync.Mutex
	saved map[snapshotKey]models.DocumentAnalytics
	saves int
	err   error
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{saved: map[snapshotKey]models.DocumentAnalytics{}}
}

func (f *fakeSnapshots) SaveSnapshot(_ context.Context, snapshot models.DocumentAnalytics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.err != nil {
		return f.err
	}
	f.saved[snapshotKey{snapshot.DocumentID, snapshot.WindowDays}] = snapshot
	return nil
}

func (f *fakeSnapshots) GetSnapshot(_ context.Context, documentID string, windowDays int) (*models.DocumentAnalytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.saved[snapshotKey{documentID, windowDays}]
	if !ok {
		return nil, store.ErrSnapshotNotFound
	}
	return &s, nil
}

func (f *fakeSnapshots) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type fakeScreenshots struct {
	img image.Image
	err error
}

func (f fakeScreenshots) Screenshot(string) (image.Image, error) { return f.img, f.err }

func rawSession(id, documentID string, age time.Duration, duration int, maxScroll float64) models.RawSession {
	return models.RawSession{
		SessionID:           id,
		DocumentID:          documentID,
		BrowserID:           "browser-" + id,
		StartTime:           now.Add(-age),
		Duration:            duration,
		MaxScrollPercentage: maxScroll,
		PixelBins:           []models.PixelBin{{Y: 0, TimeSpent: int64(duration) * 1000}},
		Viewport:            models.Viewport{Width: 1280, Height: 800},
	}
}

func newTestService(sessions *fakeSessions, snapshots *fakeSnapshots, screenshots heatmap.ScreenshotSource) *AnalyticsService {
	svc := NewAnalyticsService(sessions, snapshots, screenshots, aggregate.DefaultOptions())
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestRefreshDocumentAnalytics_OverwritesSnapshot(t *testing.T) {
	ctx := context.Background()
	sessions := &fakeSessions{sessions: []models.RawSession{
		rawSession("a", "doc-1", time.Hour, 5, 10),
		rawSession("b", "doc-1", 2*time.Hour, 200, 95),
		rawSession("c", "doc-1", 3*time.Hour, 300, 60),
		rawSession("old", "doc-1", 40*24*time.Hour, 30, 50),
		rawSession("other", "doc-2", time.Hour, 30, 50),
	}}
	snapshots := newFakeSnapshots()
	svc := newTestService(sessions, snapshots, nil)

	got, err := svc.RefreshDocumentAnalytics(ctx, "doc-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalSessions)
	assert.Equal(t, 1, got.BouncedSessions)
	assert.Equal(t, 1, got.CompletedSessions)

	cached, err := svc.CachedDocumentAnalytics(ctx, "doc-1", 30)
	require.NoError(t, err)
	assert.Equal(t, got, *cached)

	require.NoError(t, svc.IngestSession(ctx, rawSession("d", "doc-1", time.Minute, 60, 100)))
	got, err = svc.RefreshDocumentAnalytics(ctx, "doc-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalSessions)

	cached, err = svc.CachedDocumentAnalytics(ctx, "doc-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 4, cached.TotalSessions, "second write overwrites the first")
}

func TestRefreshDocumentAnalytics_SaveFailureStillReturnsSnapshot(t *testing.T) {
	sessions := &fakeSessions{sessions: []models.RawSession{rawSession("a", "doc-1", time.Hour, 30, 50)}}
	snapshots := newFakeSnapshots()
	snapshots.err = errors.New("postgres down")
	svc := newTestService(sessions, snapshots, nil)

	got, err := svc.RefreshDocumentAnalytics(context.Background(), "doc-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalSessions)
}

func TestRefreshDocumentAnalytics_ZeroSessions(t *testing.T) {
	svc := newTestService(&fakeSessions{}, newFakeSnapshots(), nil)

	got, err := svc.RefreshDocumentAnalytics(context.Background(), "empty", 7)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalSessions)
	assert.NotNil(t, got.DailyStats)
}

func TestRefreshDocumentAnalytics_LoadFailure(t *testing.T) {
	svc := newTestService(&fakeSessions{err: errors.New("clickhouse down")}, newFakeSnapshots(), nil)

	_, err := svc.RefreshDocumentAnalytics(context.Background(), "doc-1", 7)
	assert.ErrorContains(t, err, "clickhouse down")
}

func TestCachedDocumentAnalytics_NotFound(t *testing.T) {
	svc := newTestService(&fakeSessions{}, newFakeSnapshots(), nil)

	_, err := svc.CachedDocumentAnalytics(context.Background(), "doc-1", 30)
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestDerivedViews(t *testing.T) {
	ctx := context.Background()
	a := rawSession("a", "doc-1", time.Hour, 10, 45)
	a.DwellHistogram = models.DwellHistogram{"40-50": 10000}
	a.Paragraphs = []models.ParagraphRecord{{Index: 0, Reached: true, Completed: true, TimeSpent: 10000}}
	b := rawSession("b", "doc-1", time.Hour, 20, 95)
	b.DwellHistogram = models.DwellHistogram{"90-100": 20000}
	svc := newTestService(&fakeSessions{sessions: []models.RawSession{a, b}}, newFakeSnapshots(), nil)

	rows, err := svc.ScrollHeatmap(ctx, "doc-1", 7)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, 50.0, rows[5].ReachPercentage)

	paragraphs, err := svc.ParagraphEngagement(ctx, "doc-1", 7)
	require.NoError(t, err)
	require.Len(t, paragraphs, 1)
	assert.Equal(t, 50.0, paragraphs[0].ReachRate)

	bins, err := svc.PixelBins(ctx, "doc-1", 7)
	require.NoError(t, err)
	assert.Equal(t, []models.PixelBin{{Y: 0, TimeSpent: 30000}}, bins)

	dwell, err := svc.DwellTotals(ctx, "doc-1", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), dwell["40-50"])
	assert.Equal(t, int64(20000), dwell["90-100"])
}

func TestRenderHeatmap(t *testing.T) {
	ctx := context.Background()
	sessions := &fakeSessions{sessions: []models.RawSession{rawSession("a", "doc-1", time.Hour, 10, 45)}}

	t.Run("with screenshot", func(t *testing.T) {
		ref := image.NewRGBA(image.Rect(0, 0, 200, 300))
		svc := newTestService(sessions, newFakeSnapshots(), fakeScreenshots{img: ref})
		res, err := svc.RenderHeatmap(ctx, "doc-1", 7)
		require.NoError(t, err)
		assert.False(t, res.Placeholder)
		assert.Equal(t, 300, res.Image.Bounds().Dy())
	})

	t.Run("missing screenshot", func(t *testing.T) {
		svc := newTestService(sessions, newFakeSnapshots(), fakeScreenshots{err: heatmap.ErrNoScreenshot})
		res, err := svc.RenderHeatmap(ctx, "doc-1", 7)
		require.NoError(t, err)
		assert.True(t, res.Placeholder)
	})

	t.Run("no sessions", func(t *testing.T) {
		ref := image.NewRGBA(image.Rect(0, 0, 200, 300))
		svc := newTestService(&fakeSessions{}, newFakeSnapshots(), fakeScreenshots{img: ref})
		res, err := svc.RenderHeatmap(ctx, "doc-1", 7)
		require.NoError(t, err)
		assert.True(t, res.Placeholder)
	})
}

func TestVisitorJourneys(t *testing.T) {
	a := rawSession("a", "doc-1", time.Hour, 10, 45)
	b := rawSession("b", "doc-2", time.Hour, 10, 45)
	b.BrowserID = a.BrowserID
	old := rawSession("old", "doc-1", 10*24*time.Hour, 10, 45)
	svc := newTestService(&fakeSessions{sessions: []models.RawSession{a, b, old}}, newFakeSnapshots(), nil)

	journeys, err := svc.VisitorJourneys(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.Equal(t, 2, journeys[0].DocumentsViewed)
}

func TestRefreshActive(t *testing.T) {
	sessions := &fakeSessions{sessions: []models.RawSession{
		rawSession("a", "doc-1", time.Hour, 10, 45),
		rawSession("b", "doc-2", 20*24*time.Hour, 10, 45),
		rawSession("c", "doc-3", 200*24*time.Hour, 10, 45),
	}}
	snapshots := newFakeSnapshots()
	svc := newTestService(sessions, snapshots, nil)

	n, err := svc.RefreshActive(context.Background(), []int{7, 30, 90})
	require.NoError(t, err)
	assert.Equal(t, 6, n, "two active documents, three windows each")

	s, err := snapshots.GetSnapshot(context.Background(), "doc-2", 7)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalSessions)

	s, err = snapshots.GetSnapshot(context.Background(), "doc-2", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalSessions)

	_, err = snapshots.GetSnapshot(context.Background(), "doc-3", 90)
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestRefreshActive_NoWindows(t *testing.T) {
	svc := newTestService(&fakeSessions{}, newFakeSnapshots(), nil)
	n, err := svc.RefreshActive(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartRefreshWorker(t *testing.T) {
	sessions := &fakeSessions{sessions: []models.RawSession{rawSession("a", "doc-1", time.Hour, 10, 45)}}
	snapshots := newFakeSnapshots()
	svc := newTestService(sessions, snapshots, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartRefreshWorker(ctx, 10*time.Millisecond, []int{7}, svc)

	assert.Eventually(t, func() bool { return snapshots.count() >= 2 }, time.Second, 5*time.Millisecond)
}
