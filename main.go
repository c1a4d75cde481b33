package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"leadmagnet/api/config"
	"leadmagnet/api/database"
	"leadmagnet/api/handlers"
	"leadmagnet/api/heatmap"
	"leadmagnet/api/middleware"
	"leadmagnet/api/services"
	"leadmagnet/api/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize PostgreSQL Database (for analytics snapshots) ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse Database (for raw sessions) ---
	chClient, err := database.NewClickHouseDB(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := chClient.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("Failed to prepare ClickHouse schema: %v", err)
	}
	if err := dbClient.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("Failed to prepare PostgreSQL schema: %v", err)
	}
	schemaCancel()

	// --- Initialize Stores and Services ---
	sessionStore := store.NewSessionStore(chClient)
	snapshotStore := store.NewSnapshotStore(dbClient.DB)
	screenshots := heatmap.DirScreenshots{Dir: cfg.ScreenshotDir}
	analytics := services.NewAnalyticsService(sessionStore, snapshotStore, screenshots, cfg.Aggregation)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	services.StartRefreshWorker(workerCtx, cfg.RefreshInterval, cfg.RefreshWindows, analytics)

	// --- Initialize Handlers ---
	trackHandlers := handlers.NewTrackHandlers(analytics)
	analyticsHandlers := handlers.NewAnalyticsHandlers(analytics)

	if cfg.JWTSecret == "" {
		log.Println("JWT_SECRET_KEY not set, dashboard routes will reject every request")
	}

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))
	handlers.RegisterRoutes(r, trackHandlers, analyticsHandlers,
		middleware.APIKeyRequired(cfg.ServiceAPIKeyHash),
		middleware.AuthRequired([]byte(cfg.JWTSecret)),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Engagement API server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Engagement API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
