package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Settlement lifecycle. Calculated rows wait for the invoicing system,
// Invoiced rows are billed, Adjusted rows have been superseded by a
// correction. Migrated marks history imported from the previous engine:
// treated as billed, never invoiced here.
const (
	StatusCalculated = "Calculated"
	StatusInvoiced   = "Invoiced"
	StatusAdjusted   = "Adjusted"
	StatusMigrated   = "Migrated"
)

// Line sources name the input that produced a line.
const (
	LineSourceSpot         = "spot"
	LineSourceMargin       = "margin"
	LineSourceTariff       = "tariff"
	LineSourceSubscription = "subscription"
	LineSourceFee          = "fee"
)

// Line quantity units.
const (
	UnitKWH  = "KWH"
	UnitDays = "DAYS"
	UnitEach = "EACH"
)

// Settlement is the monetary outcome of rating one time series version.
// A correction row carries the signed difference against everything billed
// for the same period before it.
type Settlement struct {
	ID                   int64           `json:"id" gorm:"primaryKey"`
	DocumentNumber       string          `json:"document_number" gorm:"type:text;not null;uniqueIndex:ux_settlements_document_number"`
	MeteringPointID      int64           `json:"metering_point_id" gorm:"not null;index:ix_settlements_mp_period,priority:1"`
	SupplyID             int64           `json:"supply_id" gorm:"not null"`
	TimeSeriesID         int64           `json:"time_series_id" gorm:"not null;index:ix_settlements_series"`
	TimeSeriesVersion    int             `json:"time_series_version" gorm:"not null"`
	PeriodStart          time.Time       `json:"period_start" gorm:"not null;index:ix_settlements_mp_period,priority:2"`
	PeriodEnd            time.Time       `json:"period_end" gorm:"not null"`
	Resolution           string          `json:"resolution" gorm:"type:text;not null"`
	PricingModel         string          `json:"pricing_model" gorm:"type:text;not null"`
	PriceArea            string          `json:"price_area" gorm:"type:varchar(8);not null"`
	TotalEnergy          decimal.Decimal `json:"total_energy" gorm:"type:decimal(12,3);not null"`
	TotalAmount          decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2);not null"`
	Currency             string          `json:"currency" gorm:"type:varchar(3);not null;default:'DKK'"`
	Status               string          `json:"status" gorm:"type:text;not null;index:ix_settlements_status"`
	IsCorrection         bool            `json:"is_correction" gorm:"not null;default:false"`
	PreviousSettlementID *int64          `json:"previous_settlement_id,omitempty"`
	InvoiceRef           string          `json:"invoice_ref" gorm:"type:text"`
	InvoicedAt           *time.Time      `json:"invoiced_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Settlement) TableName() string { return "settlements" }

// MarkInvoiced moves Calculated to Invoiced. Any other observed state is a
// caller bug and fails loudly.
func (s *Settlement) MarkInvoiced(ref string, at time.Time) error {
	if s.Status != StatusCalculated {
		return fmt.Errorf("%w: settlement %d: mark invoiced expects %s, observed %s",
			ErrInvalidTransition, s.ID, StatusCalculated, s.Status)
	}
	s.Status = StatusInvoiced
	s.InvoiceRef = ref
	s.InvoicedAt = &at
	return nil
}

// MarkAdjusted moves Invoiced or Migrated to Adjusted when a correction
// supersedes the row.
func (s *Settlement) MarkAdjusted(at time.Time) error {
	if s.Status != StatusInvoiced && s.Status != StatusMigrated {
		return fmt.Errorf("%w: settlement %d: mark adjusted expects %s or %s, observed %s",
			ErrInvalidTransition, s.ID, StatusInvoiced, StatusMigrated, s.Status)
	}
	s.Status = StatusAdjusted
	s.UpdatedAt = at
	return nil
}

// Billed reports whether the row's amounts have reached the customer and
// must be part of any correction baseline.
func (s Settlement) Billed() bool {
	return s.Status == StatusInvoiced || s.Status == StatusAdjusted || s.Status == StatusMigrated
}

// SettlementLine is one priced component of a settlement. Correction lines
// carry signed deltas.
type SettlementLine struct {
	ID           int64           `json:"id" gorm:"primaryKey"`
	SettlementID int64           `json:"settlement_id" gorm:"not null;index:ix_settlement_lines_settlement"`
	Position     int             `json:"position" gorm:"not null"`
	Source       string          `json:"source" gorm:"type:text;not null"`
	ChargeID     string          `json:"charge_id" gorm:"type:text"`
	OwnerGLN     string          `json:"owner_gln" gorm:"type:varchar(13)"`
	Description  string          `json:"description" gorm:"type:text"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Unit         string          `json:"unit" gorm:"type:text;not null"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(18,6);not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SettlementLine) TableName() string { return "settlement_lines" }

// SettlementWithLines bundles a settlement with its ordered lines.
type SettlementWithLines struct {
	Settlement Settlement       `json:"settlement"`
	Lines      []SettlementLine `json:"lines"`
}

// Issue kinds.
const (
	IssueMissingPriceElements = "MissingPriceElements"
	IssuePriceCoverageGap     = "PriceCoverageGap"
)

// Issue lifecycle.
const (
	IssueStatusOpen      = "Open"
	IssueStatusResolved  = "Resolved"
	IssueStatusDismissed = "Dismissed"
)

// SettlementIssue records why a time series version cannot settle. At most
// one Open row exists per (metering point, series, version); reruns update
// it in place. A later successful calculation for the same metering point
// and period resolves open rows implicitly.
type SettlementIssue struct {
	ID                int64          `json:"id" gorm:"primaryKey"`
	MeteringPointID   int64          `json:"metering_point_id" gorm:"not null;index:ix_settlement_issues_mp"`
	TimeSeriesID      int64          `json:"time_series_id" gorm:"not null"`
	TimeSeriesVersion int            `json:"time_series_version" gorm:"not null"`
	PeriodStart       time.Time      `json:"period_start" gorm:"not null"`
	Kind              string         `json:"kind" gorm:"type:text;not null"`
	Details           datatypes.JSON `json:"details"`
	Status            string         `json:"status" gorm:"type:text;not null;index:ix_settlement_issues_status"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SettlementIssue) TableName() string { return "settlement_issues" }

// DocumentSequence backs the yearly WO-YYYY-NNNNN numbering.
type DocumentSequence struct {
	Year      int   `json:"year" gorm:"primaryKey"`
	LastValue int64 `json:"last_value" gorm:"not null;default:0"`
}

func (DocumentSequence) TableName() string { return "document_sequences" }

// FormatDocumentNumber renders the yearly sequence value.
func FormatDocumentNumber(year int, value int64) string {
	return fmt.Sprintf("WO-%d-%05d", year, value)
}
