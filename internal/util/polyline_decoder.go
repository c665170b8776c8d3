package util

import "github.com/paulmach/orb"

const (
	// PolylinePrecision is the Google Maps and GraphHopper default factor
	PolylinePrecision = 1e-5
	// PolylinePrecision6 is used by GraphHopper elevation and OSRM polyline6
	PolylinePrecision6 = 1e-6
)

// DecodePolyline converts an encoded polyline (Google Encoded Polyline Algorithm
// Format) to a line string. Points are returned in orb order: [lon, lat].
// A truncated input yields the points decoded so far.
func DecodePolyline(encoded string, precision float64) orb.LineString {
	var (
		line     orb.LineString
		index    int
		lat, lng int
	)

	for index < len(encoded) {
		dLat, next, ok := decodeValue(encoded, index)
		if !ok {
			return line
		}
		dLng, next, ok := decodeValue(encoded, next)
		if !ok {
			return line
		}
		index = next

		lat += dLat
		lng += dLng
		line = append(line, orb.Point{float64(lng) * precision, float64(lat) * precision})
	}

	return line
}

// decodeValue reads one zigzag varint chunk sequence starting at index
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift, result := 0, 0
	for {
		if index >= len(encoded) {
			return 0, index, false
		}
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, true
	}
	return result >> 1, index, true
}
