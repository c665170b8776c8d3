package util

import (
	"fmt"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// MoveToward returns the point reached after walking distanceMeters from start
// toward end along the great circle
func MoveToward(startLat, startLng, endLat, endLng, distanceMeters float64) [2]float64 {
	startPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(startLat, startLng))
	endPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(endLat, endLng))

	totalDistanceMeters := angleBetween(startPoint, endPoint).Radians() * earthRadiusMeters

	// If requested distance exceeds total distance, return end point
	if distanceMeters >= totalDistanceMeters {
		return [2]float64{endLat, endLng}
	}

	fraction := distanceMeters / totalDistanceMeters
	newLatLng := s2.LatLngFromPoint(s2.Interpolate(fraction, startPoint, endPoint))

	return [2]float64{newLatLng.Lat.Degrees(), newLatLng.Lng.Degrees()}
}

// HaversineDistance returns the great circle distance in meters
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	point1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lng1))
	point2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lng2))

	return angleBetween(point1, point2).Radians() * earthRadiusMeters
}

// CellToken returns the s2 cell token covering the coordinate at the given level.
// Level 17 cells are roughly 70 m across.
func CellToken(lat, lng float64, level int) string {
	cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng)).Parent(level)
	return cell.ToToken()
}

// FormatLatLng renders a coordinate the way routing APIs expect it
func FormatLatLng(lat, lng float64) string {
	return fmt.Sprintf("%.7f,%.7f", lat, lng)
}

func angleBetween(a, b s2.Point) s1.Angle {
	return s2.ChordAngleBetweenPoints(a, b).Angle()
}
