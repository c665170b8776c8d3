package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"venuelink/internal/model"
)

const (
	defaultArrivalsLimit = 20
	maxArrivalsLimit     = 100
)

// VenueCatalog looks venues up by ID
type VenueCatalog interface {
	Venue(id string) (model.Venue, bool)
	All() []model.Venue
}

// ArrivalLog lists recorded arrivals
type ArrivalLog interface {
	Recent(venueID string, limit int) []*model.Arrival
}

// SetupVenueHandlers registers the venue catalog endpoints
func SetupVenueHandlers(router *gin.RouterGroup, venues VenueCatalog, arrivals ArrivalLog) {
	venueGroup := router.Group("/venues")

	venueGroup.GET("", ListVenues(venues))
	venueGroup.GET("/:venue_id/arrivals", ListArrivals(venues, arrivals))
}

// ListVenues returns the catalog as a GeoJSON FeatureCollection
func ListVenues(venues VenueCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		fc := geojson.NewFeatureCollection()
		for _, v := range venues.All() {
			f := geojson.NewFeature(orb.Point{v.Lon, v.Lat})
			f.ID = v.ID
			f.Properties["name"] = v.Name
			fc.Append(f)
		}

		data, err := fc.MarshalJSON()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/geo+json", data)
	}
}

// ListArrivals returns the latest arrivals at a venue
func ListArrivals(venues VenueCatalog, arrivals ArrivalLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID := c.Param("venue_id")
		if _, ok := venues.Venue(venueID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_venue"})
			return
		}

		limit := defaultArrivalsLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxArrivalsLimit)
		}

		result := arrivals.Recent(venueID, limit)
		if result == nil {
			result = []*model.Arrival{}
		}
		c.JSON(http.StatusOK, gin.H{
			"venue_id": venueID,
			"arrivals": result,
		})
	}
}
