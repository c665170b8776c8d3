package osm

import (
	"errors"
	"io"
	"testing"

	"github.com/qedus/osmpbf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceDecoder struct {
	objects []interface{}
	err     error
}

func (d *sliceDecoder) Decode() (interface{}, error) {
	if len(d.objects) == 0 {
		if d.err != nil {
			return nil, d.err
		}
		return nil, io.EOF
	}
	o := d.objects[0]
	d.objects = d.objects[1:]
	return o, nil
}

func TestVenueMatcher(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		tags   map[string]string
		want   bool
	}{
		{name: "conference centre", tags: map[string]string{"amenity": "conference_centre", "name": "KOFST"}, want: true},
		{name: "building tag", tags: map[string]string{"building": "conference_centre", "name": "COEX"}, want: true},
		{name: "unnamed", tags: map[string]string{"amenity": "conference_centre"}, want: false},
		{name: "cafe", tags: map[string]string{"amenity": "cafe", "name": "Cafe"}, want: false},
		{name: "filter match", filter: "kofst", tags: map[string]string{"amenity": "events_venue", "name": "KOFST Hall"}, want: true},
		{name: "filter miss", filter: "kofst", tags: map[string]string{"amenity": "events_venue", "name": "COEX"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VenueMatcher(tt.filter)(tt.tags))
		})
	}
}

func TestExtractVenues(t *testing.T) {
	venue := map[string]string{"amenity": "conference_centre", "name": "KOFST"}
	d := &sliceDecoder{objects: []interface{}{
		&osmpbf.Node{ID: 1, Lat: 37.5007029, Lon: 127.0307453, Tags: venue},
		&osmpbf.Node{ID: 10, Lat: 37.0, Lon: 127.0},
		&osmpbf.Node{ID: 11, Lat: 37.0, Lon: 127.2},
		&osmpbf.Node{ID: 12, Lat: 37.2, Lon: 127.2},
		&osmpbf.Node{ID: 13, Lat: 37.2, Lon: 127.0},
		&osmpbf.Way{ID: 2, NodeIDs: []int64{10, 11, 12, 13, 10}, Tags: map[string]string{"building": "conference_centre", "name": "Hall"}},
		&osmpbf.Way{ID: 3, NodeIDs: []int64{10, 99}, Tags: map[string]string{"building": "conference_centre", "name": "Broken"}},
		&osmpbf.Way{ID: 4, NodeIDs: []int64{10, 11}, Tags: map[string]string{"highway": "footway"}},
	}}

	venues, err := ExtractVenues(d, VenueMatcher(""))
	require.NoError(t, err)
	require.Len(t, venues, 2)

	assert.Equal(t, "osm-node-1", venues[0].ID)
	assert.Equal(t, "KOFST", venues[0].Name)
	assert.Equal(t, 37.5007029, venues[0].Lat)

	assert.Equal(t, "osm-way-2", venues[1].ID)
	assert.InDelta(t, 37.1, venues[1].Lat, 1e-9)
	assert.InDelta(t, 127.1, venues[1].Lon, 1e-9)
}

func TestExtractVenues_DecodeError(t *testing.T) {
	d := &sliceDecoder{err: errors.New("truncated blob")}
	_, err := ExtractVenues(d, VenueMatcher(""))
	assert.ErrorContains(t, err, "truncated blob")
}
