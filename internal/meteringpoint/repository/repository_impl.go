package repository

import (
	"context"
	"time"

	"github.com/nordvolt/voltra/internal/meteringpoint/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindByGSRN(ctx context.Context, db *gorm.DB, gsrn string) (*domain.MeteringPoint, error) {
	var mp domain.MeteringPoint
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM metering_points WHERE gsrn = ? LIMIT 1`, gsrn).
		Scan(&mp).Error
	if err != nil {
		return nil, err
	}
	if mp.ID == 0 {
		return nil, nil
	}
	return &mp, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.MeteringPoint, error) {
	var mp domain.MeteringPoint
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM metering_points WHERE id = ? LIMIT 1`, id).
		Scan(&mp).Error
	if err != nil {
		return nil, err
	}
	if mp.ID == 0 {
		return nil, nil
	}
	return &mp, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, mp *domain.MeteringPoint) error {
	return db.WithContext(ctx).Create(mp).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, mp *domain.MeteringPoint) error {
	mp.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(mp).Error
}

func (r *repo) SetActiveSupply(ctx context.Context, db *gorm.DB, id int64, active bool) error {
	return db.WithContext(ctx).
		Exec(`UPDATE metering_points SET has_active_supply = ?, updated_at = ? WHERE id = ?`,
			active, time.Now().UTC(), id).Error
}
