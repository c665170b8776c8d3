package config

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"venuelink/internal/model"
)

// DefaultVenues is the built-in catalog
var DefaultVenues = []model.Venue{
	{ID: "kofst", Name: "KOFST Science and Technology Center", Lat: 37.5007029, Lon: 127.0307453},
}

// LoadVenues reads a JSON array of venues, as written by venue-import
func LoadVenues(path string) ([]model.Venue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var venues []model.Venue
	if err := sonic.Unmarshal(data, &venues); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return venues, nil
}

// VenueCatalog is a read-only set of venues looked up by ID
type VenueCatalog struct {
	byID  map[string]model.Venue
	order []model.Venue
}

// NewVenueCatalog validates venues and indexes them by ID
func NewVenueCatalog(venues []model.Venue) (*VenueCatalog, error) {
	validate := validator.New()
	c := &VenueCatalog{byID: make(map[string]model.Venue, len(venues))}
	for _, v := range venues {
		if err := validate.Struct(v); err != nil {
			return nil, fmt.Errorf("venue %q: %w", v.ID, err)
		}
		if _, dup := c.byID[v.ID]; dup {
			return nil, fmt.Errorf("duplicate venue %q", v.ID)
		}
		c.byID[v.ID] = v
		c.order = append(c.order, v)
	}
	return c, nil
}

// Venue returns the venue with the given ID
func (c *VenueCatalog) Venue(id string) (model.Venue, bool) {
	v, ok := c.byID[id]
	return v, ok
}

// All returns the venues in catalog order
func (c *VenueCatalog) All() []model.Venue {
	return append([]model.Venue(nil), c.order...)
}
