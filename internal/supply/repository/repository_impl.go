package repository

import (
	"context"
	"time"

	"github.com/nordvolt/voltra/internal/supply/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Supply, error) {
	var supply domain.Supply
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplies WHERE id = ? LIMIT 1`, id).
		Scan(&supply).Error
	if err != nil {
		return nil, err
	}
	if supply.ID == 0 {
		return nil, nil
	}
	return &supply, nil
}

func (r *repo) FindOpenByMeteringPoint(ctx context.Context, db *gorm.DB, meteringPointID int64) (*domain.Supply, error) {
	var supply domain.Supply
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplies WHERE metering_point_id = ? AND end_at IS NULL LIMIT 1`,
			meteringPointID).
		Scan(&supply).Error
	if err != nil {
		return nil, err
	}
	if supply.ID == 0 {
		return nil, nil
	}
	return &supply, nil
}

func (r *repo) FindActiveAt(ctx context.Context, db *gorm.DB, meteringPointID int64, at time.Time) (*domain.Supply, error) {
	var supply domain.Supply
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplies
		     WHERE metering_point_id = ? AND start_at <= ? AND (end_at IS NULL OR end_at > ?)
		     ORDER BY start_at DESC LIMIT 1`,
			meteringPointID, at, at).
		Scan(&supply).Error
	if err != nil {
		return nil, err
	}
	if supply.ID == 0 {
		return nil, nil
	}
	return &supply, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, supply *domain.Supply) error {
	return db.WithContext(ctx).Create(supply).Error
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, id int64, endAt time.Time) error {
	return db.WithContext(ctx).
		Exec(`UPDATE supplies SET end_at = ?, updated_at = ? WHERE id = ?`,
			endAt, time.Now().UTC(), id).Error
}
