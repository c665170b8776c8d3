package model

// Venue is a fixed conference destination
type Venue struct {
	ID   string  `json:"id" mapstructure:"id" validate:"required"`
	Name string  `json:"name" mapstructure:"name" validate:"required"`
	Lat  float64 `json:"latitude" mapstructure:"latitude" validate:"min=-90,max=90"`
	Lon  float64 `json:"longitude" mapstructure:"longitude" validate:"min=-180,max=180"`
}

// Position returns the venue coordinate as a position without a timestamp
func (v Venue) Position() Position {
	return Position{Lat: v.Lat, Lon: v.Lon}
}
