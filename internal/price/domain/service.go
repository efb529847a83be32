package domain

import (
	"context"
	"errors"

	"github.com/nordvolt/voltra/internal/market"
)

var (
	ErrUnknownCharge      = errors.New("price_charge_unknown")
	ErrTaxOnNonTariff     = errors.New("price_tax_requires_tariff")
	ErrTypeChange         = errors.New("price_type_immutable")
	ErrUnknownGSRN        = errors.New("price_link_gsrn_unknown")
	ErrEmptyPointRange    = errors.New("price_points_empty_range")
	ErrSubscriptionPoints = errors.New("price_subscription_single_point")
)

// Service maintains price master data delivered through BRS-031 and the
// links that bind charges to metering points.
type Service interface {
	// UpsertPriceInfo applies a D18 charge description. The charge type is
	// immutable once created.
	UpsertPriceInfo(ctx context.Context, info market.PriceInfo) (*Price, error)

	// ReplacePricePoints applies a D08 update: every stored point inside
	// the update period is replaced by the delivered points in one step.
	// Subscriptions carry their whole rate as one point, so an update
	// replaces all stored points and may deliver at most one.
	ReplacePricePoints(ctx context.Context, update market.PriceSeriesUpdate) error

	// UpsertLink applies a D17 link between a charge and a metering point.
	UpsertLink(ctx context.Context, change market.PriceLinkChange) error

	// ActivePricesFor returns every price linked to the metering point
	// overlapping the period, with the points needed to rate it: all
	// points inside the period plus the last one at or before its start.
	ActivePricesFor(ctx context.Context, meteringPointID int64, period market.Period) ([]PriceWithPoints, error)

	GetByCharge(ctx context.Context, chargeID, ownerGLN string) (*Price, error)
}
