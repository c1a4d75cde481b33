package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"leadmagnet/api/models"
)

// SessionIngester stores finished sessions.
type SessionIngester interface {
	IngestSession(ctx context.Context, session models.RawSession) error
}

type TrackHandlers struct {
	Ingester SessionIngester
}

func NewTrackHandlers(i SessionIngester) *TrackHandlers {
	return &TrackHandlers{
		Ingester: i,
	}
}

func bindSession(c *gin.Context) (models.RawSession, error) {
	var session models.RawSession
	// Beacons arrive as text/plain, so the body is always decoded as JSON.
	if err := c.ShouldBindWith(&session, binding.JSON); err != nil {
		return session, err
	}
	if err := session.Validate(); err != nil {
		return session, err
	}
	return session, nil
}

// TrackSession is the normal delivery path: a complete session posted as
// JSON by the tracker.
func (h *TrackHandlers) TrackSession(c *gin.Context) {
	session, err := bindSession(c)
	if err != nil {
		log.Printf("Error binding incoming session JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Ingester.IngestSession(ctx, session); err != nil {
		log.Printf("Error inserting session into ClickHouse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record session"})
		return
	}

	c.Status(http.StatusOK)
}

// TrackBeacon is the page-teardown path. The sender never reads the
// response, so every failure is reported as 500.
func (h *TrackHandlers) TrackBeacon(c *gin.Context) {
	session, err := bindSession(c)
	if err != nil {
		log.Printf("Error decoding beacon payload: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Ingester.IngestSession(ctx, session); err != nil {
		log.Printf("Error inserting beacon session into ClickHouse: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}
