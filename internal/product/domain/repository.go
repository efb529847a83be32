package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	FindProductByCode(ctx context.Context, db *gorm.DB, code string) (*SupplierProduct, error)
	FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*SupplierProduct, error)
	CreateProduct(ctx context.Context, db *gorm.DB, product *SupplierProduct) error

	FindPeriodAt(ctx context.Context, db *gorm.DB, supplyID int64, at time.Time) (*SupplyProductPeriod, error)
	CreatePeriod(ctx context.Context, db *gorm.DB, period *SupplyProductPeriod) error

	FindMarginAt(ctx context.Context, db *gorm.DB, productID int64, at time.Time) (*SupplierMargin, error)
	FindMarginByValidFrom(ctx context.Context, db *gorm.DB, productID int64, validFrom time.Time) (*SupplierMargin, error)
	CreateMargin(ctx context.Context, db *gorm.DB, margin *SupplierMargin) error
	UpdateMarginRate(ctx context.Context, db *gorm.DB, id int64, rate decimal.Decimal) error
}
