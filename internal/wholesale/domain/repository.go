package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertAggregated(ctx context.Context, db *gorm.DB, series *AggregatedTimeSeries) error
	ListAggregated(ctx context.Context, db *gorm.DB, gridArea string, from, to time.Time) ([]AggregatedTimeSeries, error)

	InsertWholesale(ctx context.Context, db *gorm.DB, settlement *WholesaleSettlement) error
	ListWholesale(ctx context.Context, db *gorm.DB, gridArea string, from, to time.Time) ([]WholesaleSettlement, error)
}
