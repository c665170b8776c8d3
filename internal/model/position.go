package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Position is a single timestamped device coordinate reading
type Position struct {
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate reports whether the reading can be used as a routing origin
func (p Position) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return errors.New("coordinate is NaN")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %f: must be between -90 and 90", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %f: must be between -180 and 180", p.Lon)
	}
	if p.Timestamp.IsZero() {
		return errors.New("timestamp: required")
	}
	return nil
}

// Distance is a routed travel distance in kilometers
type Distance float64

// Meters converts the distance to meters
func (d Distance) Meters() float64 {
	return float64(d) * 1000
}

// DistanceFromMeters builds a Distance from a meter value
func DistanceFromMeters(m float64) Distance {
	return Distance(m / 1000)
}
