package tracker

import (
	"context"
	"errors"
	"log"

	"venuelink/internal/location"
	"venuelink/internal/model"
	"venuelink/internal/proximity"
	"venuelink/internal/service/storage"
	"venuelink/internal/stream"
)

// ErrUnknownVenue is returned for a venue ID missing from the catalog
var ErrUnknownVenue = errors.New("unknown venue")

// PlatformFactory returns the location platform of a device
type PlatformFactory func(deviceID string) location.Platform

type venueCatalog interface {
	Venue(id string) (model.Venue, bool)
}

type arrivalRecorder interface {
	Record(ctx context.Context, deviceID string, venue model.Venue, at model.Position, d model.Distance) *model.Arrival
}

// TrackerService owns one location source per device and builds a
// proximity pipeline for every distance observation
type TrackerService struct {
	sources     storage.Storage[string, *location.Source]
	newPlatform PlatformFactory
	resolver    proximity.Resolver
	venues      venueCatalog
	arrivals    arrivalRecorder
	cfg         proximity.Config
}

// NewTrackerService creates the service. cfg.OnArrival is replaced by the
// arrival recorder.
func NewTrackerService(newPlatform PlatformFactory, resolver proximity.Resolver, venues venueCatalog, arrivals arrivalRecorder, cfg proximity.Config) *TrackerService {
	return &TrackerService{
		sources:     storage.NewMemoryStorage[string, *location.Source](),
		newPlatform: newPlatform,
		resolver:    resolver,
		venues:      venues,
		arrivals:    arrivals,
		cfg:         cfg,
	}
}

// ObserveDistance streams the routed distance from a device to a venue until
// the device arrives, fails, or the caller cancels
func (s *TrackerService) ObserveDistance(ctx context.Context, deviceID, venueID string) (*stream.Stream[model.Distance], error) {
	venue, ok := s.venues.Venue(venueID)
	if !ok {
		return nil, ErrUnknownVenue
	}

	cfg := s.cfg
	cfg.OnArrival = func(v model.Venue, at model.Position, d model.Distance) {
		if s.arrivals != nil {
			s.arrivals.Record(context.Background(), deviceID, v, at, d)
		}
	}

	pipeline := proximity.New(s.source(deviceID), s.resolver, cfg)
	return pipeline.ObserveDistance(ctx, venue)
}

// Authorization returns the last known permission state of a device
func (s *TrackerService) Authorization(deviceID string) model.AuthorizationState {
	return s.source(deviceID).Authorization()
}

// Devices returns the number of devices with a location source
func (s *TrackerService) Devices() int {
	return s.sources.Count()
}

// Shutdown closes every location source
func (s *TrackerService) Shutdown() {
	s.sources.ForEach(func(id string, src *location.Source) bool {
		src.Close()
		s.sources.Delete(id)
		return true
	})
	log.Println("Tracker service stopped")
}

func (s *TrackerService) source(deviceID string) *location.Source {
	src, existed := s.sources.GetOrCreate(deviceID, func() *location.Source {
		return location.NewSource("device:"+deviceID, s.newPlatform(deviceID))
	})
	if !existed {
		log.Printf("Tracker: created location source for device %s", deviceID)
	}
	return src
}
