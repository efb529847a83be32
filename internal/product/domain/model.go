package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultProductCode is assigned to new supplies until a product change
// arrives through onboarding.
const DefaultProductCode = "SPOT-STD"

// SupplierProduct is a retail energy product. The pricing model decides how
// energy lines are built: spot price plus margin, or margin alone.
type SupplierProduct struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Code         string    `json:"code" gorm:"type:text;not null;uniqueIndex:ux_supplier_products_code"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	PricingModel string    `json:"pricing_model" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SupplierProduct) TableName() string { return "supplier_products" }

// SupplyProductPeriod binds a supply to a product over a half-open range.
type SupplyProductPeriod struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	SupplyID  int64      `json:"supply_id" gorm:"not null;index:ix_supply_product_periods_supply"`
	ProductID int64      `json:"product_id" gorm:"not null"`
	ValidFrom time.Time  `json:"valid_from" gorm:"not null"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SupplyProductPeriod) TableName() string { return "supply_product_periods" }

// SupplierMargin is the supplier's own addition in DKK per kWh. The rate in
// force at t is the one with the greatest valid_from not after t.
type SupplierMargin struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	ProductID int64           `json:"product_id" gorm:"not null;index:ix_supplier_margins_product"`
	ValidFrom time.Time       `json:"valid_from" gorm:"not null"`
	Rate      decimal.Decimal `json:"rate" gorm:"type:decimal(12,6);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SupplierMargin) TableName() string { return "supplier_margins" }
