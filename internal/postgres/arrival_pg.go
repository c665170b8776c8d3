package postgres

import (
	"context"

	"gorm.io/gorm"

	"venuelink/internal/model"
)

const arrivalBatchSize = 500

// ArrivalRepo persists arrivals with GORM
type ArrivalRepo struct {
	db *gorm.DB
}

// NewArrivalRepo creates a repository on db
func NewArrivalRepo(db *gorm.DB) *ArrivalRepo {
	return &ArrivalRepo{db: db}
}

// SaveAll inserts arrivals in batches inside one transaction
func (r *ArrivalRepo) SaveAll(ctx context.Context, arrivals []*model.Arrival) error {
	if len(arrivals) == 0 {
		return nil
	}

	rows := make([]*model.ArrivalPG, len(arrivals))
	for i, a := range arrivals {
		rows[i] = a.ToPG()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, arrivalBatchSize).Error
	})
}

// Recent returns the latest arrivals at a venue, newest first
func (r *ArrivalRepo) Recent(ctx context.Context, venueID string, limit int) ([]*model.Arrival, error) {
	var rows []*model.ArrivalPG
	err := r.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Order("arrived_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	arrivals := make([]*model.Arrival, len(rows))
	for i, row := range rows {
		arrivals[i] = model.ArrivalFromPG(row)
	}
	return arrivals, nil
}
