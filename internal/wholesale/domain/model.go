package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AggregatedTimeSeries is a grid-area total delivered through BRS-023.
// Rows are append-only: redeliveries become new rows and reconciliation
// reads the newest by received_at.
type AggregatedTimeSeries struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	GridAreaCode  string          `json:"grid_area_code" gorm:"type:varchar(3);not null;index:ix_aggregated_series_area"`
	PeriodStart   time.Time       `json:"period_start" gorm:"not null"`
	PeriodEnd     time.Time       `json:"period_end" gorm:"not null"`
	Resolution    string          `json:"resolution" gorm:"type:text;not null"`
	TotalQuantity decimal.Decimal `json:"total_quantity" gorm:"type:decimal(14,3);not null"`
	Points        datatypes.JSON  `json:"points" gorm:"type:jsonb"`
	TransactionID string          `json:"transaction_id" gorm:"type:text"`
	MessageID     string          `json:"message_id" gorm:"type:text"`
	ReceivedAt    time.Time       `json:"received_at" gorm:"not null"`
}

func (AggregatedTimeSeries) TableName() string { return "aggregated_time_series" }

// WholesaleSettlement is DataHub's own monetary aggregate per grid area and
// charge, delivered through BRS-027. Kept for reconciliation against our
// settlements, never used as their input.
type WholesaleSettlement struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	GridAreaCode  string          `json:"grid_area_code" gorm:"type:varchar(3);not null;index:ix_wholesale_settlements_area"`
	ChargeID      string          `json:"charge_id" gorm:"type:text;not null"`
	ChargeOwner   string          `json:"charge_owner" gorm:"type:varchar(13);not null"`
	ChargeType    string          `json:"charge_type" gorm:"type:text"`
	PeriodStart   time.Time       `json:"period_start" gorm:"not null"`
	PeriodEnd     time.Time       `json:"period_end" gorm:"not null"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(14,3);not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null"`
	Currency      string          `json:"currency" gorm:"type:varchar(3);not null"`
	TransactionID string          `json:"transaction_id" gorm:"type:text"`
	MessageID     string          `json:"message_id" gorm:"type:text"`
	ReceivedAt    time.Time       `json:"received_at" gorm:"not null"`
}

func (WholesaleSettlement) TableName() string { return "wholesale_settlements" }

// AggregatedPoint is the JSON shape stored in AggregatedTimeSeries.Points.
type AggregatedPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Quantity  decimal.Decimal `json:"quantity"`
	Quality   string          `json:"quality"`
}
