package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/nordvolt/voltra/internal/customer/domain"
	"github.com/nordvolt/voltra/internal/customer/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, name string) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.SupplierIdentity{}, &domain.Customer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func strPtr(s string) *string { return &s }

func TestEnsureIdentityIsIdempotent(t *testing.T) {
	svc := newTestService(t, "cust_identity")
	ctx := context.Background()

	first, err := svc.EnsureIdentity(ctx, "5790000701414", "Nordvolt Energi A/S")
	require.NoError(t, err)
	require.Equal(t, domain.IdentityActive, first.Status)

	second, err := svc.EnsureIdentity(ctx, "5790000701414", "renamed")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Nordvolt Energi A/S", second.Name)
}

func TestEnsureIdentityRejectsBadCheckDigit(t *testing.T) {
	svc := newTestService(t, "cust_badgln")
	_, err := svc.EnsureIdentity(context.Background(), "5790000701413", "x")
	require.ErrorIs(t, err, domain.ErrInvalidGLN)
}

func TestEnsureCustomerCreatesThenReuses(t *testing.T) {
	svc := newTestService(t, "cust_ensure")
	ctx := context.Background()

	identity, err := svc.EnsureIdentity(ctx, "5790000701414", "Nordvolt Energi A/S")
	require.NoError(t, err)

	created, err := svc.EnsureCustomer(ctx, domain.EnsureCustomerInput{
		IdentityID: identity.ID,
		Name:       "Jens Hansen",
		CPR:        strPtr("0101901234"),
	})
	require.NoError(t, err)
	require.False(t, created.IsBusiness())

	again, err := svc.EnsureCustomer(ctx, domain.EnsureCustomerInput{
		IdentityID: identity.ID,
		Name:       "Jens P. Hansen",
		CPR:        strPtr("0101901234"),
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)
	require.Equal(t, "Jens P. Hansen", again.Name)
}

func TestEnsureCustomerRequiresExactlyOneIdentifier(t *testing.T) {
	svc := newTestService(t, "cust_ident_rules")
	ctx := context.Background()

	_, err := svc.EnsureCustomer(ctx, domain.EnsureCustomerInput{IdentityID: 1, Name: "x"})
	require.ErrorIs(t, err, domain.ErrMissingIdentifier)

	_, err = svc.EnsureCustomer(ctx, domain.EnsureCustomerInput{
		IdentityID: 1,
		Name:       "x",
		CPR:        strPtr("0101901234"),
		CVR:        strPtr("12345678"),
	})
	require.ErrorIs(t, err, domain.ErrAmbiguousIdentity)
}

func TestEnsureCustomerBusinessByCVR(t *testing.T) {
	svc := newTestService(t, "cust_cvr")
	ctx := context.Background()

	identity, err := svc.EnsureIdentity(ctx, "5790000701414", "Nordvolt Energi A/S")
	require.NoError(t, err)

	customer, err := svc.EnsureCustomer(ctx, domain.EnsureCustomerInput{
		IdentityID: identity.ID,
		Name:       "Bageriet ApS",
		CVR:        strPtr("12345678"),
	})
	require.NoError(t, err)
	require.True(t, customer.IsBusiness())

	got, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, "Bageriet ApS", got.Name)
}
