package jobs

import (
	"context"
	"log"
	"time"

	"github.com/mohamdbadhe/campus-hub/internal/config"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

// StartBookingReleaseJob periodically restores availability on rooms
// whose approved booking has ended. Disabled unless
// BOOKING_RELEASE_ENABLED is set.
func StartBookingReleaseJob(ctx context.Context, cfg config.Config, store *repository.Store) {
	if !cfg.BookingReleaseEnabled {
		return
	}
	interval := cfg.BookingReleaseInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				released, err := store.ReleaseExpiredRooms(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Printf("booking release job error: %v", err)
					continue
				}
				if released > 0 {
					log.Printf("booking release job freed %d rooms", released)
				}
			}
		}
	}()
}
