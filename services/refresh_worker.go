package services

import (
	"context"
	"log"
	"time"
)

// StartRefreshWorker starts a background goroutine that periodically
// recomputes snapshots for active documents. The worker stops when ctx is done.
func StartRefreshWorker(ctx context.Context, interval time.Duration, windows []int, svc *AnalyticsService) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("refresh worker: shutting down")
				return
			case <-ticker.C:
				n, err := svc.RefreshActive(ctx, windows)
				if err != nil {
					log.Println("refresh worker: error refreshing snapshots:", err)
					continue
				}
				log.Printf("refresh worker: refreshed %d snapshots", n)
			}
		}
	}()
}
