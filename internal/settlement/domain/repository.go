package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	tsdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, settlement *Settlement) error
	Update(ctx context.Context, db *gorm.DB, settlement *Settlement) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Settlement, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Settlement, error)

	InsertLines(ctx context.Context, db *gorm.DB, lines []SettlementLine) error
	ListLines(ctx context.Context, db *gorm.DB, settlementID int64) ([]SettlementLine, error)

	// FindForPeriod returns every settlement for the metering point and
	// period start, oldest first.
	FindForPeriod(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) ([]Settlement, error)

	// FindCandidates returns latest-version time series with no settlement
	// for their exact version and no Calculated settlement for their
	// (metering point, period), ordered by reception time.
	FindCandidates(ctx context.Context, db *gorm.DB, limit int) ([]tsdomain.TimeSeries, error)

	CountCandidates(ctx context.Context, db *gorm.DB) (int64, error)

	// NextDocumentNumber advances the yearly sequence. Must run inside the
	// transaction that persists the settlement.
	NextDocumentNumber(ctx context.Context, db *gorm.DB, year int) (int64, error)

	FindIssueByID(ctx context.Context, db *gorm.DB, id int64) (*SettlementIssue, error)
	FindOpenIssue(ctx context.Context, db *gorm.DB, meteringPointID, timeSeriesID int64, version int) (*SettlementIssue, error)
	CreateIssue(ctx context.Context, db *gorm.DB, issue *SettlementIssue) error
	UpdateIssue(ctx context.Context, db *gorm.DB, issue *SettlementIssue) error

	// ResolveOpenIssues marks every Open issue for the metering point and
	// period start Resolved.
	ResolveOpenIssues(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time, at time.Time) error

	ListIssues(ctx context.Context, db *gorm.DB, filter IssueFilter) ([]SettlementIssue, error)
}
