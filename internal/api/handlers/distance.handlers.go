package routes

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"venuelink/internal/location"
	"venuelink/internal/model"
	"venuelink/internal/service/tracker"
	"venuelink/internal/stream"
)

// DistanceObserver opens a distance stream for a device and venue
type DistanceObserver interface {
	ObserveDistance(ctx context.Context, deviceID, venueID string) (*stream.Stream[model.Distance], error)
}

type distanceEvent struct {
	DistanceKm float64 `json:"distance_km"`
	DistanceM  float64 `json:"distance_m"`
}

type arrivedEvent struct {
	DeviceID string `json:"device_id"`
	VenueID  string `json:"venue_id"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// SetupDistanceHandlers registers the distance streaming endpoint
func SetupDistanceHandlers(router *gin.RouterGroup, observer DistanceObserver) {
	router.GET("/devices/:device_id/venues/:venue_id/distance", StreamDistance(observer))
}

// StreamDistance sends routed distances as Server-Sent Events until the
// device arrives, the stream fails, or the client goes away
func StreamDistance(observer DistanceObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.Param("device_id")
		venueID := c.Param("venue_id")
		ctx := c.Request.Context()

		s, err := observer.ObserveDistance(ctx, deviceID, venueID)
		if err != nil {
			log.Printf("Distance stream %s -> %s not started: %v", deviceID, venueID, err)
			c.JSON(startErrorStatus(err), errorEvent{Error: errorCode(err)})
			return
		}
		defer s.Cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		for {
			select {
			case <-ctx.Done():
				log.Printf("Distance stream %s -> %s: client gone", deviceID, venueID)
				return
			case d, ok := <-s.Values():
				if !ok {
					if err := s.Err(); err != nil {
						c.SSEvent("error", errorEvent{Error: errorCode(err)})
					} else {
						c.SSEvent("arrived", arrivedEvent{DeviceID: deviceID, VenueID: venueID})
					}
					c.Writer.Flush()
					return
				}
				c.SSEvent("distance", distanceEvent{DistanceKm: float64(d), DistanceM: d.Meters()})
				c.Writer.Flush()
			}
		}
	}
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, tracker.ErrUnknownVenue):
		return http.StatusNotFound
	case errors.Is(err, location.ErrSourceBusy):
		return http.StatusConflict
	case errors.Is(err, model.ErrDataUnavailable), errors.Is(err, location.ErrSourceClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, model.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, tracker.ErrUnknownVenue):
		return "unknown_venue"
	case errors.Is(err, location.ErrSourceBusy):
		return "busy"
	case errors.Is(err, location.ErrSourceClosed):
		return "unavailable"
	default:
		return "upstream_error"
	}
}
