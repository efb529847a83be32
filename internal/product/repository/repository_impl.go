package repository

import (
	"context"
	"time"

	"github.com/nordvolt/voltra/internal/product/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindProductByCode(ctx context.Context, db *gorm.DB, code string) (*domain.SupplierProduct, error) {
	var product domain.SupplierProduct
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplier_products WHERE code = ? LIMIT 1`, code).
		Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*domain.SupplierProduct, error) {
	var product domain.SupplierProduct
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplier_products WHERE id = ? LIMIT 1`, id).
		Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) CreateProduct(ctx context.Context, db *gorm.DB, product *domain.SupplierProduct) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindPeriodAt(ctx context.Context, db *gorm.DB, supplyID int64, at time.Time) (*domain.SupplyProductPeriod, error) {
	var period domain.SupplyProductPeriod
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supply_product_periods
		     WHERE supply_id = ? AND valid_from <= ? AND (valid_to IS NULL OR valid_to > ?)
		     ORDER BY valid_from DESC LIMIT 1`,
			supplyID, at, at).
		Scan(&period).Error
	if err != nil {
		return nil, err
	}
	if period.ID == 0 {
		return nil, nil
	}
	return &period, nil
}

func (r *repo) CreatePeriod(ctx context.Context, db *gorm.DB, period *domain.SupplyProductPeriod) error {
	return db.WithContext(ctx).Create(period).Error
}

func (r *repo) FindMarginAt(ctx context.Context, db *gorm.DB, productID int64, at time.Time) (*domain.SupplierMargin, error) {
	var margin domain.SupplierMargin
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplier_margins
		     WHERE product_id = ? AND valid_from <= ?
		     ORDER BY valid_from DESC LIMIT 1`,
			productID, at).
		Scan(&margin).Error
	if err != nil {
		return nil, err
	}
	if margin.ID == 0 {
		return nil, nil
	}
	return &margin, nil
}

func (r *repo) FindMarginByValidFrom(ctx context.Context, db *gorm.DB, productID int64, validFrom time.Time) (*domain.SupplierMargin, error) {
	var margin domain.SupplierMargin
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplier_margins WHERE product_id = ? AND valid_from = ? LIMIT 1`,
			productID, validFrom).
		Scan(&margin).Error
	if err != nil {
		return nil, err
	}
	if margin.ID == 0 {
		return nil, nil
	}
	return &margin, nil
}

func (r *repo) CreateMargin(ctx context.Context, db *gorm.DB, margin *domain.SupplierMargin) error {
	return db.WithContext(ctx).Create(margin).Error
}

func (r *repo) UpdateMarginRate(ctx context.Context, db *gorm.DB, id int64, rate decimal.Decimal) error {
	return db.WithContext(ctx).
		Exec(`UPDATE supplier_margins SET rate = ? WHERE id = ?`, rate, id).Error
}
