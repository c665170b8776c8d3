package arrival

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"venuelink/internal/model"
	"venuelink/internal/service/storage"
	"venuelink/internal/util"
)

const publishTimeout = 5 * time.Second

type repository interface {
	SaveAll(ctx context.Context, arrivals []*model.Arrival) error
	Recent(ctx context.Context, venueID string, limit int) ([]*model.Arrival, error)
}

type publisher interface {
	PublishArrival(ctx context.Context, a *model.Arrival) error
}

// ArrivalService keeps the arrival log in memory, persists new entries to
// PostgreSQL and announces them to organisers
type ArrivalService struct {
	storage   storage.Storage[string, *model.Arrival]
	repo      repository
	publisher publisher

	initialized bool
	initMutex   sync.Mutex
}

// NewArrivalService creates the service. Either dependency may be nil.
func NewArrivalService(repo repository, pub publisher) *ArrivalService {
	return &ArrivalService{
		storage:   storage.NewMemoryStorage[string, *model.Arrival](),
		repo:      repo,
		publisher: pub,
	}
}

// InitService loads the latest persisted arrivals of each venue into memory
func (s *ArrivalService) InitService(ctx context.Context, venues []model.Venue, perVenue int) error {
	s.initMutex.Lock()
	defer s.initMutex.Unlock()

	if s.initialized || s.repo == nil {
		return nil
	}

	loaded := make([]string, 0)
	for _, v := range venues {
		arrivals, err := s.repo.Recent(ctx, v.ID, perVenue)
		if err != nil {
			return fmt.Errorf("failed to load arrivals for %s: %w", v.ID, err)
		}
		for _, a := range arrivals {
			s.storage.Set(a.ID, a)
			loaded = append(loaded, a.ID)
		}
	}
	// already persisted
	s.storage.ClearDirty(loaded)

	log.Printf("Loaded %d arrivals from PostgreSQL", len(loaded))
	s.initialized = true
	return nil
}

// Record logs an arrival and publishes it
func (s *ArrivalService) Record(ctx context.Context, deviceID string, venue model.Venue, at model.Position, d model.Distance) *model.Arrival {
	a := &model.Arrival{
		ID:         util.ShortUUID(),
		DeviceID:   deviceID,
		VenueID:    venue.ID,
		Lat:        at.Lat,
		Lon:        at.Lon,
		DistanceKm: float64(d),
		ArrivedAt:  at.Timestamp,
	}
	if a.ArrivedAt.IsZero() {
		a.ArrivedAt = time.Now()
	}
	s.storage.Set(a.ID, a)
	log.Printf("Device %s arrived at %s (%.3f km)", deviceID, venue.ID, a.DistanceKm)

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := s.publisher.PublishArrival(pubCtx, a); err != nil {
			log.Printf("Error publishing arrival %s: %v", a.ID, err)
		}
	}
	return a
}

// SaveDirtyArrivalsToPG persists arrivals recorded since the last save
func (s *ArrivalService) SaveDirtyArrivalsToPG(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	dirty := s.storage.GetDirty()
	if len(dirty) == 0 {
		return nil
	}

	keys := make([]string, 0, len(dirty))
	arrivals := make([]*model.Arrival, 0, len(dirty))
	for id, a := range dirty {
		keys = append(keys, id)
		arrivals = append(arrivals, a)
	}
	sortByArrival(arrivals)

	if err := s.repo.SaveAll(ctx, arrivals); err != nil {
		return err
	}

	// Clear flags only after successful save
	s.storage.ClearDirty(keys)

	log.Printf("Saved %d arrivals to PostgreSQL", len(arrivals))
	return nil
}

// Recent returns the latest arrivals at a venue, newest first
func (s *ArrivalService) Recent(venueID string, limit int) []*model.Arrival {
	var result []*model.Arrival
	s.storage.ForEach(func(_ string, a *model.Arrival) bool {
		if a.VenueID == venueID {
			result = append(result, a)
		}
		return true
	})

	sortByArrival(result)
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// PruneBefore drops persisted arrivals older than cutoff from memory
func (s *ArrivalService) PruneBefore(cutoff time.Time) int {
	dirty := s.storage.GetDirty()
	pruned := 0
	s.storage.ForEach(func(id string, a *model.Arrival) bool {
		if _, unsaved := dirty[id]; !unsaved && a.ArrivedAt.Before(cutoff) {
			if s.storage.Delete(id) {
				pruned++
			}
		}
		return true
	})
	return pruned
}

// Count returns the number of arrivals held in memory
func (s *ArrivalService) Count() int {
	return s.storage.Count()
}

func sortByArrival(arrivals []*model.Arrival) {
	sort.Slice(arrivals, func(i, j int) bool {
		if arrivals[i].ArrivedAt.Equal(arrivals[j].ArrivedAt) {
			return arrivals[i].ID < arrivals[j].ID
		}
		return arrivals[i].ArrivedAt.Before(arrivals[j].ArrivedAt)
	})
}
