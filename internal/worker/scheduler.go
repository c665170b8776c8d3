package worker

import (
	"context"
	"log"

	"venuelink/internal/config"
)

// StartAllWorkers initializes and starts all background workers. The
// returned channel is closed once they have finished after ctx ends.
func StartAllWorkers(ctx context.Context, arrivals ArrivalStore) <-chan struct{} {
	log.Println("Starting all workers...")

	done := StartArrivalsWorker(ctx, arrivals, config.ArrivalFlushInterval, config.ArrivalRetention)

	log.Println("All workers started")
	return done
}
