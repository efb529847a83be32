package domain

import (
	"context"
	"errors"
	"time"

	"github.com/nordvolt/voltra/internal/market"
)

var (
	ErrUnknownArea = errors.New("spot_price_area_unknown")
)

// Service keeps the day-ahead spot curve current and serves it to the
// settlement calculator.
type Service interface {
	// Ingest stores fetched quotes for a bidding zone, overwriting any
	// hour already present. Returns the number of points written.
	Ingest(ctx context.Context, area market.PriceArea, quotes []Quote) (int, error)

	// CurveFor returns the points needed to rate the period: every hour
	// inside it plus the last one at or before its start.
	CurveFor(ctx context.Context, area market.PriceArea, period market.Period) (Curve, error)

	// ListRange returns stored points for inspection endpoints.
	ListRange(ctx context.Context, area market.PriceArea, start, end time.Time) ([]SpotPrice, error)
}
