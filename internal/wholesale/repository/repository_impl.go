package repository

import (
	"context"
	"time"

	"github.com/nordvolt/voltra/internal/wholesale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) InsertAggregated(ctx context.Context, db *gorm.DB, series *domain.AggregatedTimeSeries) error {
	return db.WithContext(ctx).Create(series).Error
}

func (r *repo) ListAggregated(ctx context.Context, db *gorm.DB, gridArea string, from, to time.Time) ([]domain.AggregatedTimeSeries, error) {
	var out []domain.AggregatedTimeSeries
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM aggregated_time_series
		     WHERE grid_area_code = ? AND period_start >= ? AND period_start < ?
		     ORDER BY period_start ASC, received_at ASC`,
			gridArea, from, to).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) InsertWholesale(ctx context.Context, db *gorm.DB, settlement *domain.WholesaleSettlement) error {
	return db.WithContext(ctx).Create(settlement).Error
}

func (r *repo) ListWholesale(ctx context.Context, db *gorm.DB, gridArea string, from, to time.Time) ([]domain.WholesaleSettlement, error) {
	var out []domain.WholesaleSettlement
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM wholesale_settlements
		     WHERE grid_area_code = ? AND period_start >= ? AND period_start < ?
		     ORDER BY period_start ASC, charge_id ASC, received_at ASC`,
			gridArea, from, to).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
