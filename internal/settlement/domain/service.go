package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("settlement_not_found")
	ErrIssueNotFound     = errors.New("settlement_issue_not_found")
	ErrInvalidTransition = errors.New("settlement_invalid_transition")
	ErrIssueClosed       = errors.New("settlement_issue_closed")
	ErrMissingInvoiceRef = errors.New("settlement_missing_invoice_ref")
)

// ListFilter narrows settlement queries for the pull API. CursorID pages
// by key: rows strictly past the cursor in the requested order.
type ListFilter struct {
	Status          string
	MeteringPointID int64
	IsCorrection    *bool
	PeriodFrom      time.Time
	PeriodTo        time.Time
	OldestFirst     bool
	CursorID        int64
	Limit           int
	Offset          int
}

// IssueFilter narrows issue queries.
type IssueFilter struct {
	Status          string
	MeteringPointID int64
	Limit           int
	Offset          int
}

// Service is the read-and-transition surface consumed by the invoicing
// system and the operations endpoints. Settlement creation is the worker's
// job, not part of this interface.
type Service interface {
	// Get returns one settlement with its lines.
	Get(ctx context.Context, id int64) (*SettlementWithLines, error)

	// List returns settlements matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Settlement, error)

	// Pending returns Calculated settlements awaiting invoicing, oldest
	// first so the invoicing system drains in order.
	Pending(ctx context.Context, limit, offset int) ([]SettlementWithLines, error)

	// Corrections returns correction settlements, newest first.
	Corrections(ctx context.Context, limit, offset int) ([]SettlementWithLines, error)

	// Invoice moves a Calculated settlement to Invoiced under the given
	// external reference. Any other state returns ErrInvalidTransition.
	Invoice(ctx context.Context, id int64, invoiceRef string, at time.Time) (*Settlement, error)

	// Issues lists settlement issues matching the filter.
	Issues(ctx context.Context, filter IssueFilter) ([]SettlementIssue, error)

	// DismissIssue closes an Open issue by operator decision.
	DismissIssue(ctx context.Context, id int64, at time.Time) (*SettlementIssue, error)
}
