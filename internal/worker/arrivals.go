package worker

import (
	"context"
	"log"
	"time"
)

// ArrivalStore is the part of the arrival service the worker drives
type ArrivalStore interface {
	SaveDirtyArrivalsToPG(ctx context.Context) error
	PruneBefore(cutoff time.Time) int
}

// StartArrivalsWorker saves new arrivals to PostgreSQL on every tick and
// drops saved ones older than retention from memory. A last save runs when
// ctx is cancelled.
func StartArrivalsWorker(ctx context.Context, store ArrivalStore, interval, retention time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// ctx is gone, give the final save its own deadline
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := store.SaveDirtyArrivalsToPG(flushCtx); err != nil {
					log.Printf("Error saving arrivals to PostgreSQL on shutdown: %v", err)
				}
				cancel()
				return
			case <-ticker.C:
				if err := store.SaveDirtyArrivalsToPG(ctx); err != nil {
					log.Printf("Error saving arrivals to PostgreSQL: %v", err)
					continue
				}
				if n := store.PruneBefore(time.Now().Add(-retention)); n > 0 {
					log.Printf("Pruned %d arrivals from memory", n)
				}
			}
		}
	}()

	log.Println("Arrivals worker started with interval:", interval)
	return done
}
