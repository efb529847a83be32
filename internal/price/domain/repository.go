package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByCharge(ctx context.Context, db *gorm.DB, chargeID, ownerGLN string) (*Price, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Price, error)
	Create(ctx context.Context, db *gorm.DB, price *Price) error
	Update(ctx context.Context, db *gorm.DB, price *Price) error

	DeletePointsInRange(ctx context.Context, db *gorm.DB, priceID int64, start, end time.Time) error
	DeleteAllPoints(ctx context.Context, db *gorm.DB, priceID int64) error
	InsertPoints(ctx context.Context, db *gorm.DB, points []PricePoint) error
	FindPointAtOrBefore(ctx context.Context, db *gorm.DB, priceID int64, at time.Time) (*PricePoint, error)
	ListPointsInRange(ctx context.Context, db *gorm.DB, priceID int64, start, end time.Time) ([]PricePoint, error)

	FindLink(ctx context.Context, db *gorm.DB, priceID, meteringPointID int64, startAt time.Time) (*PriceLink, error)
	CreateLink(ctx context.Context, db *gorm.DB, link *PriceLink) error
	UpdateLink(ctx context.Context, db *gorm.DB, link *PriceLink) error
	ListLinkedPrices(ctx context.Context, db *gorm.DB, meteringPointID int64, start, end time.Time) ([]Price, error)
}
