package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeSeries is one delivered version of metered consumption for a metering
// point and period. Versions are assigned in arrival order and only the
// newest one carries is_latest. Older versions are never changed, so a
// settlement can always name the exact data it was computed from.
type TimeSeries struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	MeteringPointID int64     `json:"metering_point_id" gorm:"not null;uniqueIndex:ux_time_series_mp_period_version,priority:1;index:ix_time_series_mp_latest,priority:1"`
	PeriodStart     time.Time `json:"period_start" gorm:"not null;uniqueIndex:ux_time_series_mp_period_version,priority:2"`
	PeriodEnd       time.Time `json:"period_end" gorm:"not null"`
	Resolution      string    `json:"resolution" gorm:"type:text;not null"`
	Version         int       `json:"version" gorm:"not null;uniqueIndex:ux_time_series_mp_period_version,priority:3"`
	IsLatest        bool      `json:"is_latest" gorm:"not null;default:true;index:ix_time_series_mp_latest,priority:2"`
	TransactionID   string    `json:"transaction_id" gorm:"type:text"`
	MessageID       string    `json:"message_id" gorm:"type:text"`
	BusinessReason  string    `json:"business_reason" gorm:"type:text"`
	PointCount      int       `json:"point_count" gorm:"not null;default:0"`
	ReceivedAt      time.Time `json:"received_at" gorm:"not null;index:ix_time_series_received"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TimeSeries) TableName() string { return "time_series" }

// Observation is one metered interval of a series version.
type Observation struct {
	ID           int64           `json:"id" gorm:"primaryKey"`
	TimeSeriesID int64           `json:"time_series_id" gorm:"not null;uniqueIndex:ux_observations_series_ts,priority:1"`
	Timestamp    time.Time       `json:"timestamp" gorm:"not null;uniqueIndex:ux_observations_series_ts,priority:2"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Quality      string          `json:"quality" gorm:"type:text;not null"`
}

func (Observation) TableName() string { return "observations" }
