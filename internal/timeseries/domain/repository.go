package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*TimeSeries, error)
	FindLatest(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) (*TimeSeries, error)
	MaxVersion(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) (int, error)
	ClearLatest(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) error
	Create(ctx context.Context, db *gorm.DB, series *TimeSeries) error
	InsertObservations(ctx context.Context, db *gorm.DB, observations []Observation) error
	ListObservations(ctx context.Context, db *gorm.DB, timeSeriesID int64) ([]Observation, error)
	ListVersions(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) ([]TimeSeries, error)
}
