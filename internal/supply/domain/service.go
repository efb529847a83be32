package domain

import (
	"context"
	"errors"
	"time"

	"github.com/nordvolt/voltra/internal/market"
)

var (
	ErrNoActiveSupply   = errors.New("supply_not_active")
	ErrNotFound         = errors.New("supply_not_found")
	ErrStartAfterSwitch = errors.New("supply_switch_before_start")
	ErrMissingCustomer  = errors.New("supply_customer_required")
)

// Service tracks supply relationships driven by switch confirmations and
// move events.
type Service interface {
	// HandleSupplyChange applies a switch confirmation or rejection. A
	// confirmation closes any open supply at the effective date and opens
	// a new one for the carried customer. Rejections change nothing.
	HandleSupplyChange(ctx context.Context, identityID int64, ev market.SupplyEvent) (*Supply, error)

	// HandleMove applies a move-in or move-out event. A move-in behaves
	// like an incoming switch. A move-out only closes the open supply.
	HandleMove(ctx context.Context, identityID int64, ev market.SupplyEvent) (*Supply, error)

	// ActiveAt resolves the supply in force for a metering point at t.
	ActiveAt(ctx context.Context, meteringPointID int64, at time.Time) (*Supply, error)

	GetByID(ctx context.Context, id int64) (*Supply, error)
}
