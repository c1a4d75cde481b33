package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"leadmagnet/api/models"
)

// DeliveryMode distinguishes a normal in-app stop from page teardown.
type DeliveryMode int

const (
	// DeliveryNormal waits for the request to complete.
	DeliveryNormal DeliveryMode = iota
	// DeliveryDegraded fires the request and does not wait: the page is
	// going away and completion is not guaranteed.
	DeliveryDegraded
)

func (m DeliveryMode) String() string {
	if m == DeliveryDegraded {
		return "degraded"
	}
	return "normal"
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, session *models.RawSession, mode DeliveryMode) error
}

// Transport delivers finalized sessions. Failures are logged and the
// session is dropped; nothing is retried.
type Transport struct {
	sender   Sender
	timeout  time.Duration
	inFlight sync.WaitGroup
}

func NewTransport(sender Sender, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = DefaultConfig().DeliveryTimeout
	}
	return &Transport{sender: sender, timeout: timeout}
}

// Deliver sends the session. In normal mode the result is returned; in
// degraded mode the send runs in the background and Deliver returns nil.
func (t *Transport) Deliver(ctx context.Context, session *models.RawSession, mode DeliveryMode) error {
	if mode == DeliveryDegraded {
		t.inFlight.Add(1)
		go func() {
			defer t.inFlight.Done()
			// Detached from ctx: the caller is tearing down.
			sendCtx, cancel := context.WithTimeout(context.Background(), t.timeout)
			defer cancel()
			if err := t.sender.Send(sendCtx, session, mode); err != nil {
				log.Printf("tracker: beacon delivery of session %s failed, dropping it: %v", session.SessionID, err)
			}
		}()
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.sender.Send(sendCtx, session, mode); err != nil {
		log.Printf("tracker: delivery of session %s failed, dropping it: %v", session.SessionID, err)
		return fmt.Errorf("deliver session %s: %w", session.SessionID, err)
	}
	return nil
}

// Wait blocks until background deliveries finish.
func (t *Transport) Wait() {
	t.inFlight.Wait()
}

// HTTPDoer is the subset of *http.Client the sender needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSender posts sessions to the ingest API: the authenticated session
// endpoint on the normal path, the beacon endpoint on the degraded path.
type HTTPSender struct {
	BaseURL string
	APIKey  string
	Client  HTTPDoer
}

func NewHTTPSender(baseURL, apiKey string) *HTTPSender {
	return &HTTPSender{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, session *models.RawSession, mode DeliveryMode) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	url := s.BaseURL + "/api/track/session"
	contentType := "application/json"
	if mode == DeliveryDegraded {
		// Matches what navigator.sendBeacon sends for a string body.
		url = s.BaseURL + "/api/track/beacon"
		contentType = "text/plain;charset=UTF-8"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if mode == DeliveryNormal && s.APIKey != "" {
		req.Header.Set("X-API-KEY", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post session: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ingest responded %d", resp.StatusCode)
	}
	return nil
}
