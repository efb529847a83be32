package domain

import (
	"context"
	"time"

	"github.com/nordvolt/voltra/internal/market"
)

// Service stores DataHub's aggregates for later reconciliation.
type Service interface {
	RecordAggregated(ctx context.Context, messageID string, series market.AggregatedSeries) (*AggregatedTimeSeries, error)
	RecordWholesale(ctx context.Context, messageID string, series market.WholesaleSeries) (*WholesaleSettlement, error)

	ListAggregated(ctx context.Context, gridArea string, from, to time.Time) ([]AggregatedTimeSeries, error)
	ListWholesale(ctx context.Context, gridArea string, from, to time.Time) ([]WholesaleSettlement, error)
}
