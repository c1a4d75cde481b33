package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"leadmagnet/api/models"
	"leadmagnet/api/tracker"
)

type received struct {
	path        string
	contentType string
	apiKey      string
	session     models.RawSession
}

type ingestServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []received
}

func newIngestServer(t *testing.T, status int) *ingestServer {
	s := &ingestServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session models.RawSession
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&session))
		s.mu.Lock()
		s.requests = append(s.requests, received{
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			apiKey:      r.Header.Get("X-API-KEY"),
			session:     session,
		})
		s.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *ingestServer) all() []received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]received(nil), s.requests...)
}

var replayStart = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

const readingScript = `
document_id: doc-1
email: reader@example.com
referrer: https://www.google.com/
viewport: {width: 1280, height: 800}
document_height: 4000
paragraphs:
  - {top: 0, bottom: 600}
  - {top: 600, bottom: 2400}
events:
  - {at: 0s, scroll: 0}
  - {at: 5s, scroll: 1600}
  - {at: 10s, exit: unmount}
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReplaySession_Unmount(t *testing.T) {
	srv := newIngestServer(t, http.StatusOK)
	script, err := loadReplayScript(writeScript(t, readingScript))
	require.NoError(t, err)

	transport := tracker.NewTransport(tracker.NewHTTPSender(srv.URL, "ingest-key"), time.Second)
	session, err := replaySession(context.Background(), script, tracker.DefaultConfig(), transport, tracker.NewMemoryStorage(), replayStart)
	require.NoError(t, err)

	assert.Equal(t, 10, session.Duration)
	assert.Equal(t, 50.0, session.MaxScrollPercentage)
	assert.Equal(t, int64(5000), session.DwellHistogram["0-10"])
	assert.Equal(t, int64(5000), session.DwellHistogram["50-60"])
	assert.LessOrEqual(t, session.DwellHistogram.Total(), int64(session.Duration)*1000)
	require.Len(t, session.Paragraphs, 2)
	assert.True(t, session.Paragraphs[0].Completed)

	reqs := srv.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/track/session", reqs[0].path)
	assert.Equal(t, "application/json", reqs[0].contentType)
	assert.Equal(t, "ingest-key", reqs[0].apiKey)
	assert.Equal(t, session.SessionID, reqs[0].session.SessionID)
	assert.Equal(t, "doc-1", reqs[0].session.DocumentID)
}

func TestReplaySession_UnloadUsesBeacon(t *testing.T) {
	srv := newIngestServer(t, http.StatusOK)
	script, err := loadReplayScript(writeScript(t, `
document_id: doc-2
viewport: {width: 390, height: 844}
document_height: 3000
events:
  - {at: 0s, scroll: 0}
  - {at: 3s, exit: unload}
  - {at: 4s, exit: unmount}
`))
	require.NoError(t, err)

	transport := tracker.NewTransport(tracker.NewHTTPSender(srv.URL, "ingest-key"), time.Second)
	session, err := replaySession(context.Background(), script, tracker.DefaultConfig(), transport, nil, replayStart)
	require.NoError(t, err)
	assert.Equal(t, 3, session.Duration)

	reqs := srv.all()
	require.Len(t, reqs, 1, "later exit triggers never deliver again")
	assert.Equal(t, "/api/track/beacon", reqs[0].path)
	assert.Equal(t, "text/plain;charset=UTF-8", reqs[0].contentType)
	assert.Empty(t, reqs[0].apiKey)
}

func TestReplaySession_CapStopsTracking(t *testing.T) {
	srv := newIngestServer(t, http.StatusOK)
	script, err := loadReplayScript(writeScript(t, `
document_id: doc-3
viewport: {width: 1280, height: 800}
document_height: 2000
events:
  - {at: 0s, scroll: 0}
  - {at: 20s, hidden: true}
  - {at: 50s, hidden: false}
  - {at: 300s, scroll: 1200}
`))
	require.NoError(t, err)

	transport := tracker.NewTransport(tracker.NewHTTPSender(srv.URL, ""), time.Second)
	session, err := replaySession(context.Background(), script, tracker.DefaultConfig(), transport, nil, replayStart)
	require.NoError(t, err)

	assert.Equal(t, 90, session.Duration, "hidden time does not count toward the cap")
	assert.Equal(t, 0.0, session.MaxScrollPercentage, "input after the cap is ignored")
	assert.True(t, session.EndTime.Equal(replayStart.Add(120*time.Second)))
	require.Len(t, srv.all(), 1)
}

func TestReplaySession_DeliveryFailure(t *testing.T) {
	srv := newIngestServer(t, http.StatusInternalServerError)
	script, err := loadReplayScript(writeScript(t, readingScript))
	require.NoError(t, err)

	transport := tracker.NewTransport(tracker.NewHTTPSender(srv.URL, ""), time.Second)
	session, err := replaySession(context.Background(), script, tracker.DefaultConfig(), transport, nil, replayStart)
	assert.Error(t, err)
	require.NotNil(t, session)
	assert.Len(t, srv.all(), 1, "no retry")
}

func TestLoadReplayScript_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing document", "events: []"},
		{"unknown exit", "document_id: d\nevents:\n  - {at: 1s, exit: close}"},
		{"two inputs", "document_id: d\nevents:\n  - {at: 1s, scroll: 10, hidden: true}"},
		{"no input", "document_id: d\nevents:\n  - {at: 1s}"},
		{"negative offset", "document_id: d\nevents:\n  - {at: -1s, scroll: 10}"},
		{"bad yaml", "document_id: [d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadReplayScript(writeScript(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestReplayCommand(t *testing.T) {
	srv := newIngestServer(t, http.StatusOK)
	t.Setenv("CONFIG_FILE", "")
	path := writeScript(t, readingScript)

	var out bytes.Buffer
	err := runWithOutput([]string{"replay", "--script", path, "--endpoint", srv.URL, "--api-key", "k"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "for doc-1: 10s active")
	assert.Len(t, srv.all(), 1)
}

func TestHashKeyCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runWithOutput([]string{"hash-key", "--cost", "4", "--key", "ingest-key"}, &out))

	hash := bytes.TrimSpace(out.Bytes())
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("ingest-key")))

	out.Reset()
	require.NoError(t, runWithOutput([]string{"hash-key", "--cost", "4", "positional"}, &out))
	assert.NoError(t, bcrypt.CompareHashAndPassword(bytes.TrimSpace(out.Bytes()), []byte("positional")))

	assert.Error(t, runWithOutput([]string{"hash-key"}, &out))
}

func TestRecomputeCommand_RequiresTarget(t *testing.T) {
	var out bytes.Buffer
	err := runWithOutput([]string{"recompute"}, &out)
	assert.ErrorContains(t, err, "--document or --all")

	err = runWithOutput([]string{"recompute", "--document", "doc-1", "--days", "14"}, &out)
	assert.ErrorContains(t, err, "unsupported window")
}

func TestParser_RegistersCommands(t *testing.T) {
	parser, _, cmds := buildParser(&bytes.Buffer{})
	for _, name := range []string{"recompute", "heatmap", "hash-key", "replay"} {
		assert.NotNil(t, parser.Find(name), name)
	}
	assert.NotNil(t, cmds.Replay)
}
