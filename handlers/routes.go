package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under /api. ingestAuth guards the normal
// delivery path and dashboardAuth the analytics views; the beacon path is
// public because page-teardown requests cannot carry custom headers.
func RegisterRoutes(r *gin.Engine, track *TrackHandlers, analytics *AnalyticsHandlers, ingestAuth, dashboardAuth gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.GET("/health", HealthCheck)

		trackGroup := api.Group("/track")
		{
			trackGroup.POST("/session", ingestAuth, track.TrackSession)
			trackGroup.POST("/beacon", track.TrackBeacon)
		}

		stats := api.Group("/stats")
		stats.Use(dashboardAuth)
		{
			stats.GET("/documents/:documentId", analytics.GetDocumentAnalytics)
			stats.GET("/documents/:documentId/snapshot", analytics.GetDocumentSnapshot)
			stats.GET("/documents/:documentId/scroll-heatmap", analytics.GetScrollHeatmap)
			stats.GET("/documents/:documentId/paragraphs", analytics.GetParagraphEngagement)
			stats.GET("/documents/:documentId/pixels", analytics.GetPixelBins)
			stats.GET("/documents/:documentId/dwell", analytics.GetDwellTotals)
			stats.GET("/documents/:documentId/heatmap.png", analytics.GetHeatmapImage)
			stats.GET("/visitors", analytics.GetVisitorJourneys)
		}
	}
}
