package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	customerdomain "github.com/nordvolt/voltra/internal/customer/domain"
	"github.com/nordvolt/voltra/internal/market"
	productdomain "github.com/nordvolt/voltra/internal/product/domain"
)

const (
	defaultProductName = "Spot med tillæg"
	defaultMarginRate  = "0.040"
)

// defaultMarginFrom predates any metered period the engine will see, so a
// freshly seeded environment can settle historic test data.
var defaultMarginFrom = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// EnsureSupplierIdentity seeds the retailer's own market identity so
// inbound documents addressed to the configured GLN resolve on first boot.
func EnsureSupplierIdentity(db *gorm.DB, gln, name string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	gln = strings.TrimSpace(gln)
	if gln == "" {
		return errors.New("seed supplier GLN is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureIdentityTx(ctx, tx, node, gln, name)
		return err
	})
}

// EnsureDefaultProduct seeds the spot product new supplies fall back to,
// with a starter margin when the product has none. Simulation environments
// run this so ingested series settle without manual setup.
func EnsureDefaultProduct(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := ensureProductTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureMarginTx(ctx, tx, node, product.ID)
	})
}

func ensureIdentityTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, gln, name string) (customerdomain.SupplierIdentity, error) {
	var identity customerdomain.SupplierIdentity
	err := tx.WithContext(ctx).Where("gln = ?", gln).First(&identity).Error
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return identity, err
	}
	now := time.Now().UTC()
	identity = customerdomain.SupplierIdentity{
		ID:        node.Generate().Int64(),
		GLN:       gln,
		Name:      name,
		Status:    customerdomain.IdentityActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&identity).Error; err != nil {
		return identity, err
	}
	return identity, nil
}

func ensureProductTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (productdomain.SupplierProduct, error) {
	var product productdomain.SupplierProduct
	err := tx.WithContext(ctx).Where("code = ?", productdomain.DefaultProductCode).First(&product).Error
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return product, err
	}
	now := time.Now().UTC()
	product = productdomain.SupplierProduct{
		ID:           node.Generate().Int64(),
		Code:         productdomain.DefaultProductCode,
		Name:         defaultProductName,
		PricingModel: string(market.PricingSpotAddon),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		return product, err
	}
	return product, nil
}

// ensureMarginTx inserts the starter rate only when the product has no
// margin rows at all, so operator-tuned rates survive restarts.
func ensureMarginTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, productID int64) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&productdomain.SupplierMargin{}).
		Where("product_id = ?", productID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	margin := productdomain.SupplierMargin{
		ID:        node.Generate().Int64(),
		ProductID: productID,
		ValidFrom: defaultMarginFrom,
		Rate:      decimal.RequireFromString(defaultMarginRate),
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&margin).Error
}
