package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"leadmagnet/api/heatmap"
	"leadmagnet/api/models"
	"leadmagnet/api/store"
	"leadmagnet/api/utils"
)

// AnalyticsReader serves the dashboard views.
type AnalyticsReader interface {
	RefreshDocumentAnalytics(ctx context.Context, documentID string, windowDays int) (models.DocumentAnalytics, error)
	CachedDocumentAnalytics(ctx context.Context, documentID string, windowDays int) (*models.DocumentAnalytics, error)
	ScrollHeatmap(ctx context.Context, documentID string, windowDays int) ([]models.ScrollHeatmapRow, error)
	ParagraphEngagement(ctx context.Context, documentID string, windowDays int) ([]models.ParagraphMetrics, error)
	PixelBins(ctx context.Context, documentID string, windowDays int) ([]models.PixelBin, error)
	DwellTotals(ctx context.Context, documentID string, windowDays int) (models.DwellHistogram, error)
	RenderHeatmap(ctx context.Context, documentID string, windowDays int) (heatmap.Result, error)
	VisitorJourneys(ctx context.Context, windowDays int) ([]models.VisitorJourney, error)
}

type AnalyticsHandlers struct {
	Analytics AnalyticsReader
}

func NewAnalyticsHandlers(a AnalyticsReader) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		Analytics: a,
	}
}

// documentWindow reads the :documentId path parameter and the days query.
func documentWindow(c *gin.Context) (string, int, bool) {
	documentID := c.Param("documentId")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId is required"})
		return "", 0, false
	}
	days, err := utils.ParseWindowDays(c.Query("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", 0, false
	}
	return documentID, days, true
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}

// GetDocumentAnalytics recomputes the snapshot from raw sessions.
func (h *AnalyticsHandlers) GetDocumentAnalytics(c *gin.Context) {
	documentID, days, ok := documentWindow(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.Analytics.RefreshDocumentAnalytics(ctx, documentID, days)
	if err != nil {
		log.Printf("Error computing analytics for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute document analytics"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDocumentSnapshot returns the last persisted snapshot without recomputing.
func (h *AnalyticsHandlers) GetDocumentSnapshot(c *gin.Context) {
	documentID, days, ok := documentWindow(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.Analytics.CachedDocumentAnalytics(ctx, documentID, days)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analytics snapshot for this document yet"})
		return
	}
	if err != nil {
		log.Printf("Error loading analytics snapshot for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analytics snapshot"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalyticsHandlers) GetScrollHeatmap(c *gin.Context) {
	documentID, days, ok := documentWindow(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := h.Analytics.ScrollHeatmap(ctx, documentID, days)
	if err != nil {
		log.Printf("Error computing scroll heatmap for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute scroll heatmap"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *AnalyticsHandlers) GetParagraphEngagement(c *gin.Context) {
	documentID, days, ok := documentWindow(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	metrics, err := h.Analytics.ParagraphEngagement(ctx, documentID, days)
	if err != nil {
		log.Printf("Error computing paragraph engagement for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute paragraph engagement"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *AnalyticsHandlers) GetPixelBins(c *gin.Context) {
	documentID, days, ok := documentWindow(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	bins, err := h.Analytics.PixelBins(ctx, documentID, days)
	if err != nil {
		log.Printf("Error merging pixel bins for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute pixel heatmap"})
		return
	}
	c.JSON(http.StatusOK, bins)
}

func (h *AnalyticsHandlers) GetDwellTotals(c *gin.Context) {
	documentID, days, ok := documentWindow(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	dwell, err := h.Analytics.DwellTotals(ctx, documentID, days)
	if err != nil {
		log.Printf("Error summing dwell time for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute dwell time"})
		return
	}
	c.JSON(http.StatusOK, dwell)
}

// GetHeatmapImage renders the pixel heatmap as PNG. A placeholder image is
// flagged with the X-Heatmap-Placeholder header.
func (h *AnalyticsHandlers) GetHeatmapImage(c *gin.Context) {
	documentID, days, ok := documentWindow(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.Analytics.RenderHeatmap(ctx, documentID, days)
	if err != nil {
		log.Printf("Error rendering heatmap for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render heatmap"})
		return
	}
	data, err := heatmap.EncodePNG(result)
	if err != nil {
		log.Printf("Error encoding heatmap for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render heatmap"})
		return
	}

	c.Header("X-Heatmap-Placeholder", strconv.FormatBool(result.Placeholder))
	c.Data(http.StatusOK, "image/png", data)
}

func (h *AnalyticsHandlers) GetVisitorJourneys(c *gin.Context) {
	days, err := utils.ParseWindowDays(c.Query("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	journeys, err := h.Analytics.VisitorJourneys(ctx, days)
	if err != nil {
		log.Printf("Error computing visitor journeys: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute visitor journeys"})
		return
	}
	c.JSON(http.StatusOK, journeys)
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
