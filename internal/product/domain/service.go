package domain

import (
	"context"
	"errors"
	"time"

	"github.com/nordvolt/voltra/internal/market"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownProduct = errors.New("product_unknown")
	ErrNoProduct      = errors.New("product_not_assigned")
	ErrNoMargin       = errors.New("margin_not_defined")
)

type Service interface {
	// EnsureProduct upserts a product by code. Existing products keep
	// their pricing model.
	EnsureProduct(ctx context.Context, code, name string, model market.PricingModel) (*SupplierProduct, error)

	// SetMargin records the margin rate taking effect at validFrom,
	// replacing an earlier rate with the same start.
	SetMargin(ctx context.Context, productID int64, validFrom time.Time, rate decimal.Decimal) error

	// AssignDefaultProduct gives a supply the default product from the
	// given instant. Already assigned supplies are left alone.
	AssignDefaultProduct(ctx context.Context, supplyID int64, from time.Time) error

	// ProductAt resolves the product in force for a supply at t.
	ProductAt(ctx context.Context, supplyID int64, at time.Time) (*SupplierProduct, error)

	// MarginAt resolves the margin rate in force for a product at t.
	MarginAt(ctx context.Context, productID int64, at time.Time) (decimal.Decimal, error)
}
