package services

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically clears expired content. Query-time filtering already
// hides expired items from readers; the sweep is what actually reclaims the
// documents and blobs.
type Sweeper struct {
	cleanup  *CleanupService
	interval time.Duration
}

// NewSweeper creates a Sweeper ticking at the given interval.
func NewSweeper(cleanup *CleanupService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{cleanup: cleanup, interval: interval}
}

// Run blocks, sweeping once per tick until ctx is cancelled. Items that fail
// mid-delete stay journaled by the cleanup service as retry handles.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("expiry sweeper running every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("expiry sweeper stopped")
			return
		case <-ticker.C:
			swept, err := s.cleanup.SweepExpired(ctx)
			if err != nil {
				log.Printf("expiry sweep: %v", err)
			}
			if swept > 0 {
				log.Printf("expiry sweep removed %d items", swept)
			}
		}
	}
}
