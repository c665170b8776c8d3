// Package osm extracts venue candidates from OpenStreetMap PBF extracts.
package osm

import (
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/qedus/osmpbf"

	"venuelink/internal/model"
)

var venueAmenities = map[string]bool{
	"conference_centre": true,
	"events_venue":      true,
	"exhibition_centre": true,
}

type decoder interface {
	Decode() (interface{}, error)
}

// Matcher decides whether a tagged OSM object is a venue
type Matcher func(tags map[string]string) bool

// VenueMatcher accepts named conference and event venues. A non-empty
// nameFilter further requires the name to contain it, ignoring case.
func VenueMatcher(nameFilter string) Matcher {
	nameFilter = strings.ToLower(nameFilter)
	return func(tags map[string]string) bool {
		name := tags["name"]
		if name == "" {
			return false
		}
		if !venueAmenities[tags["amenity"]] && tags["building"] != "conference_centre" {
			return false
		}
		return nameFilter == "" || strings.Contains(strings.ToLower(name), nameFilter)
	}
}

// ExtractVenues reads every object from d and returns the matching nodes and
// ways as venues. Ways are placed at the centroid of their outline, so the
// extract must list nodes before ways, as standard PBF files do.
func ExtractVenues(d decoder, match Matcher) ([]model.Venue, error) {
	coords := make(map[int64]orb.Point)
	var venues []model.Venue

	for {
		object, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}

		switch o := object.(type) {
		case *osmpbf.Node:
			coords[o.ID] = orb.Point{o.Lon, o.Lat}
			if match(o.Tags) {
				venues = append(venues, model.Venue{
					ID:   fmt.Sprintf("osm-node-%d", o.ID),
					Name: o.Tags["name"],
					Lat:  o.Lat,
					Lon:  o.Lon,
				})
			}
		case *osmpbf.Way:
			if !match(o.Tags) {
				continue
			}
			center, ok := wayCentroid(o, coords)
			if !ok {
				continue
			}
			venues = append(venues, model.Venue{
				ID:   fmt.Sprintf("osm-way-%d", o.ID),
				Name: o.Tags["name"],
				Lat:  center.Lat(),
				Lon:  center.Lon(),
			})
		}
	}
	return venues, nil
}

func wayCentroid(w *osmpbf.Way, coords map[int64]orb.Point) (orb.Point, bool) {
	ring := make(orb.Ring, 0, len(w.NodeIDs))
	for _, id := range w.NodeIDs {
		p, ok := coords[id]
		if !ok {
			return orb.Point{}, false
		}
		ring = append(ring, p)
	}

	switch {
	case len(ring) == 0:
		return orb.Point{}, false
	case len(ring) >= 4 && ring.Closed():
		center, _ := planar.CentroidArea(ring)
		return center, true
	default:
		center, _ := planar.CentroidArea(orb.MultiPoint(ring))
		return center, true
	}
}
