package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Supply, error)
	FindOpenByMeteringPoint(ctx context.Context, db *gorm.DB, meteringPointID int64) (*Supply, error)
	FindActiveAt(ctx context.Context, db *gorm.DB, meteringPointID int64, at time.Time) (*Supply, error)
	Create(ctx context.Context, db *gorm.DB, supply *Supply) error
	Close(ctx context.Context, db *gorm.DB, id int64, endAt time.Time) error
}
