package domain

import (
	"context"
	"errors"
)

// EnsureCustomerInput identifies a customer inside one supplier identity.
// Exactly one of CPR or CVR must be set.
type EnsureCustomerInput struct {
	IdentityID int64
	Name       string
	CPR        *string
	CVR        *string
}

type Service interface {
	// EnsureIdentity upserts a supplier GLN. Existing identities keep
	// their status.
	EnsureIdentity(ctx context.Context, gln, name string) (*SupplierIdentity, error)
	IdentityByGLN(ctx context.Context, gln string) (*SupplierIdentity, error)

	// EnsureCustomer finds the customer by CPR or CVR and creates one when
	// absent. A changed name on the wire updates the stored record.
	EnsureCustomer(ctx context.Context, in EnsureCustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
}

var (
	ErrIdentityNotFound  = errors.New("supplier_identity_not_found")
	ErrInvalidGLN        = errors.New("supplier_gln_invalid")
	ErrInvalidName       = errors.New("customer_name_required")
	ErrMissingIdentifier = errors.New("customer_identifier_required")
	ErrAmbiguousIdentity = errors.New("customer_identifier_ambiguous")
	ErrNotFound          = errors.New("customer_not_found")
)
