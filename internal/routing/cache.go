package routing

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"venuelink/internal/model"
	"venuelink/internal/util"
)

// Cache is the key-value store backing CachedResolver
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Resolver is the routed distance contract
type Resolver interface {
	Distance(ctx context.Context, origin model.Position, venue model.Venue) (model.Distance, error)
}

// CachedResolver memoizes routed distances per venue and origin cell.
// Errors from the wrapped resolver are never cached.
type CachedResolver struct {
	next      Resolver
	cache     Cache
	ttl       time.Duration
	cellLevel int
}

// NewCachedResolver wraps next with cache. cellLevel is the s2 level used to
// bucket origins.
func NewCachedResolver(next Resolver, cache Cache, ttl time.Duration, cellLevel int) *CachedResolver {
	return &CachedResolver{next: next, cache: cache, ttl: ttl, cellLevel: cellLevel}
}

func (c *CachedResolver) Distance(ctx context.Context, origin model.Position, venue model.Venue) (model.Distance, error) {
	if err := origin.Validate(); err != nil {
		return 0, fmt.Errorf("%w: origin: %v", model.ErrDataUnavailable, err)
	}

	key := c.key(origin, venue)
	if value, found, err := c.cache.Get(ctx, key); err != nil {
		log.Printf("Route cache get %s: %v", key, err)
	} else if found {
		if meters, err := strconv.ParseFloat(value, 64); err == nil {
			return model.DistanceFromMeters(meters), nil
		}
		log.Printf("Route cache: discarding malformed value for %s", key)
	}

	d, err := c.next.Distance(ctx, origin, venue)
	if err != nil {
		return 0, err
	}

	value := strconv.FormatFloat(d.Meters(), 'f', 1, 64)
	if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
		log.Printf("Route cache set %s: %v", key, err)
	}
	return d, nil
}

func (c *CachedResolver) key(origin model.Position, venue model.Venue) string {
	return fmt.Sprintf("route:%s:%s", venue.ID, util.CellToken(origin.Lat, origin.Lon, c.cellLevel))
}
