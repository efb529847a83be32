package domain

import (
	"context"
	"errors"

	"github.com/nordvolt/voltra/internal/market"
)

var (
	ErrNotFound    = errors.New("metering_point_not_found")
	ErrMissingGSRN = errors.New("metering_point_gsrn_required")
	ErrInvalidGSRN = errors.New("metering_point_gsrn_invalid")
	ErrMissingGrid = errors.New("metering_point_grid_area_required")
	ErrMissingType = errors.New("metering_point_type_required")
)

// Service maintains metering point master data. Lifecycle messages carry
// partial updates, so absent fields keep their stored values.
type Service interface {
	// ApplyMasterData upserts master data from a lifecycle message. Unknown
	// GSRNs are created when the change carries enough to seed a record.
	ApplyMasterData(ctx context.Context, change market.MasterDataChange) (*MeteringPoint, error)

	GetByGSRN(ctx context.Context, gsrn string) (*MeteringPoint, error)
	GetByID(ctx context.Context, id int64) (*MeteringPoint, error)

	// MarkActiveSupply flips the denormalized supply flag kept on the
	// metering point for quick settlement eligibility checks.
	MarkActiveSupply(ctx context.Context, id int64, active bool) error
}
