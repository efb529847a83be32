package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nordvolt/voltra/internal/spotprice/domain"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, points []domain.SpotPrice) error {
	if len(points) == 0 {
		return nil
	}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "price_area"}, {Name: "hour"}},
		DoUpdates: clause.AssignmentColumns([]string{"price_mwh", "updated_at"}),
	}
	return db.WithContext(ctx).Clauses(conflict).CreateInBatches(points, 500).Error
}

func (r *repo) ListRange(ctx context.Context, db *gorm.DB, area string, start, end time.Time) ([]domain.SpotPrice, error) {
	var points []domain.SpotPrice
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM spot_prices
		     WHERE price_area = ? AND hour >= ? AND hour < ?
		     ORDER BY hour ASC`,
			area, start, end).
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (r *repo) FindAtOrBefore(ctx context.Context, db *gorm.DB, area string, at time.Time) (*domain.SpotPrice, error) {
	var point domain.SpotPrice
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM spot_prices
		     WHERE price_area = ? AND hour <= ?
		     ORDER BY hour DESC LIMIT 1`,
			area, at).
		Scan(&point).Error
	if err != nil {
		return nil, err
	}
	if point.ID == 0 {
		return nil, nil
	}
	return &point, nil
}
