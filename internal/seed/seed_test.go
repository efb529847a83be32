package seed

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	customerdomain "github.com/nordvolt/voltra/internal/customer/domain"
	productdomain "github.com/nordvolt/voltra/internal/product/domain"
)

func seedDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.SupplierIdentity{},
		&productdomain.SupplierProduct{},
		&productdomain.SupplierMargin{},
	))
	return db
}

func TestEnsureSupplierIdentityIsIdempotent(t *testing.T) {
	db := seedDB(t, "seed_identity")

	require.NoError(t, EnsureSupplierIdentity(db, "5790000701414", "Nordvolt Energi A/S"))

	var first customerdomain.SupplierIdentity
	require.NoError(t, db.Where("gln = ?", "5790000701414").First(&first).Error)
	require.Equal(t, customerdomain.IdentityActive, first.Status)

	require.NoError(t, EnsureSupplierIdentity(db, "5790000701414", "Nordvolt Energi A/S"))

	var count int64
	require.NoError(t, db.Model(&customerdomain.SupplierIdentity{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var second customerdomain.SupplierIdentity
	require.NoError(t, db.Where("gln = ?", "5790000701414").First(&second).Error)
	require.Equal(t, first.ID, second.ID)
}

func TestEnsureSupplierIdentityRequiresGLN(t *testing.T) {
	db := seedDB(t, "seed_identity_gln")
	require.Error(t, EnsureSupplierIdentity(db, "  ", "Nordvolt Energi A/S"))
}

func TestEnsureDefaultProductSeedsStarterMargin(t *testing.T) {
	db := seedDB(t, "seed_product")

	require.NoError(t, EnsureDefaultProduct(db))

	var product productdomain.SupplierProduct
	require.NoError(t, db.Where("code = ?", productdomain.DefaultProductCode).First(&product).Error)
	require.Equal(t, defaultProductName, product.Name)

	var margins []productdomain.SupplierMargin
	require.NoError(t, db.Where("product_id = ?", product.ID).Find(&margins).Error)
	require.Len(t, margins, 1)
	require.True(t, margins[0].Rate.Equal(decimal.RequireFromString(defaultMarginRate)), margins[0].Rate.String())
	require.True(t, margins[0].ValidFrom.Equal(defaultMarginFrom))
}

func TestEnsureDefaultProductPreservesTunedMargin(t *testing.T) {
	db := seedDB(t, "seed_product_tuned")
	require.NoError(t, EnsureDefaultProduct(db))

	var product productdomain.SupplierProduct
	require.NoError(t, db.Where("code = ?", productdomain.DefaultProductCode).First(&product).Error)

	// An operator raised the margin after go-live.
	tuned := decimal.RequireFromString("0.055")
	require.NoError(t, db.Model(&productdomain.SupplierMargin{}).
		Where("product_id = ?", product.ID).
		Update("rate", tuned).Error)

	require.NoError(t, EnsureDefaultProduct(db))

	var margins []productdomain.SupplierMargin
	require.NoError(t, db.Where("product_id = ?", product.ID).Find(&margins).Error)
	require.Len(t, margins, 1)
	require.True(t, margins[0].Rate.Equal(tuned))
}
