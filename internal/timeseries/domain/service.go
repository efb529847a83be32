package domain

import (
	"context"
	"errors"
	"time"

	"github.com/nordvolt/voltra/internal/market"
)

var (
	ErrUnknownMeteringPoint = errors.New("time_series_metering_point_unknown")
	ErrNotFound             = errors.New("time_series_not_found")
)

// Service ingests metered data deliveries and serves stored versions.
type Service interface {
	// Ingest stores one delivered series as the next version for its
	// metering point and period. Observations outside the declared period
	// are dropped. An empty series is stored too, so the delivery stays
	// auditable.
	Ingest(ctx context.Context, messageID, businessReason string, series market.MeteredDataSeries) (*TimeSeries, error)

	GetByID(ctx context.Context, id int64) (*TimeSeries, error)
	GetLatest(ctx context.Context, meteringPointID int64, periodStart time.Time) (*TimeSeries, error)
	Observations(ctx context.Context, timeSeriesID int64) ([]Observation, error)
	Versions(ctx context.Context, meteringPointID int64, periodStart time.Time) ([]TimeSeries, error)
}
