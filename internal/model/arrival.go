package model

import (
	"time"

	"gorm.io/gorm"
)

// Arrival records a device reaching the proximity threshold of a venue
type Arrival struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	VenueID    string    `json:"venue_id"`
	Lat        float64   `json:"latitude"`
	Lon        float64   `json:"longitude"`
	DistanceKm float64   `json:"distance_km"`
	ArrivedAt  time.Time `json:"arrived_at"`
}

// ArrivalPG model for PostgreSQL storage
type ArrivalPG struct {
	ID         string    `gorm:"primaryKey"`
	DeviceID   string    `gorm:"size:64;not null;index"`
	VenueID    string    `gorm:"size:64;not null;index"`
	Lat        float64   `gorm:"not null"`
	Lon        float64   `gorm:"not null"`
	DistanceKm float64   `gorm:"not null"`
	ArrivedAt  time.Time `gorm:"not null"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName overrides the table name
func (ArrivalPG) TableName() string {
	return "arrivals"
}

// ToPG converts the in-memory arrival to its PostgreSQL model
func (a *Arrival) ToPG() *ArrivalPG {
	return &ArrivalPG{
		ID:         a.ID,
		DeviceID:   a.DeviceID,
		VenueID:    a.VenueID,
		Lat:        a.Lat,
		Lon:        a.Lon,
		DistanceKm: a.DistanceKm,
		ArrivedAt:  a.ArrivedAt,
	}
}

// ArrivalFromPG converts a PostgreSQL arrival to the in-memory model
func ArrivalFromPG(pg *ArrivalPG) *Arrival {
	return &Arrival{
		ID:         pg.ID,
		DeviceID:   pg.DeviceID,
		VenueID:    pg.VenueID,
		Lat:        pg.Lat,
		Lon:        pg.Lon,
		DistanceKm: pg.DistanceKm,
		ArrivedAt:  pg.ArrivedAt,
	}
}
