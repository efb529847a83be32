package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/internal/product/domain"
	"github.com/nordvolt/voltra/internal/product/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, name string) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.SupplierProduct{},
		&domain.SupplyProductPeriod{},
		&domain.SupplierMargin{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestMarginAtPicksGreatestValidFrom(t *testing.T) {
	svc := newTestService(t, "product_margin")
	ctx := context.Background()

	product, err := svc.EnsureProduct(ctx, domain.DefaultProductCode, "Spot med tillæg", market.PricingSpotAddon)
	require.NoError(t, err)

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.SetMargin(ctx, product.ID, jan, decimal.RequireFromString("0.040")))
	require.NoError(t, svc.SetMargin(ctx, product.ID, mar, decimal.RequireFromString("0.055")))

	rate, err := svc.MarginAt(ctx, product.ID, time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.040")), rate.String())

	rate, err = svc.MarginAt(ctx, product.ID, mar)
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.055")), rate.String())

	_, err = svc.MarginAt(ctx, product.ID, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, domain.ErrNoMargin)
}

func TestSetMarginReplacesSameValidFrom(t *testing.T) {
	svc := newTestService(t, "product_margin_replace")
	ctx := context.Background()

	product, err := svc.EnsureProduct(ctx, domain.DefaultProductCode, "Spot med tillæg", market.PricingSpotAddon)
	require.NoError(t, err)

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.SetMargin(ctx, product.ID, jan, decimal.RequireFromString("0.040")))
	require.NoError(t, svc.SetMargin(ctx, product.ID, jan, decimal.RequireFromString("0.045")))

	rate, err := svc.MarginAt(ctx, product.ID, jan.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.045")), rate.String())
}

func TestAssignDefaultProductIsIdempotent(t *testing.T) {
	svc := newTestService(t, "product_assign")
	ctx := context.Background()

	product, err := svc.EnsureProduct(ctx, domain.DefaultProductCode, "Spot med tillæg", market.PricingSpotAddon)
	require.NoError(t, err)

	from := time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AssignDefaultProduct(ctx, 42, from))
	require.NoError(t, svc.AssignDefaultProduct(ctx, 42, from))

	got, err := svc.ProductAt(ctx, 42, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, product.ID, got.ID)

	_, err = svc.ProductAt(ctx, 42, from.Add(-time.Hour))
	require.ErrorIs(t, err, domain.ErrNoProduct)
}

func TestAssignDefaultProductWithoutSeedFails(t *testing.T) {
	svc := newTestService(t, "product_noseeds")
	err := svc.AssignDefaultProduct(context.Background(), 1, time.Now().UTC())
	require.ErrorIs(t, err, domain.ErrUnknownProduct)
}
