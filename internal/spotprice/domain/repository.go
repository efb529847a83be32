package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the points, replacing the stored price for any
	// (area, hour) pair that already exists.
	Upsert(ctx context.Context, db *gorm.DB, points []SpotPrice) error

	// ListRange returns points for the area with start <= hour < end,
	// ordered by hour.
	ListRange(ctx context.Context, db *gorm.DB, area string, start, end time.Time) ([]SpotPrice, error)

	// FindAtOrBefore returns the newest point with hour <= at, or nil.
	FindAtOrBefore(ctx context.Context, db *gorm.DB, area string, at time.Time) (*SpotPrice, error)
}
