package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByGSRN(ctx context.Context, db *gorm.DB, gsrn string) (*MeteringPoint, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*MeteringPoint, error)
	Create(ctx context.Context, db *gorm.DB, mp *MeteringPoint) error
	Update(ctx context.Context, db *gorm.DB, mp *MeteringPoint) error
	SetActiveSupply(ctx context.Context, db *gorm.DB, id int64, active bool) error
}
