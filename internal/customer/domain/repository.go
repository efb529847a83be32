package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindIdentityByGLN(ctx context.Context, db *gorm.DB, gln string) (*SupplierIdentity, error)
	CreateIdentity(ctx context.Context, db *gorm.DB, identity *SupplierIdentity) error

	FindCustomerByID(ctx context.Context, db *gorm.DB, id int64) (*Customer, error)
	FindCustomerByCPR(ctx context.Context, db *gorm.DB, identityID int64, cpr string) (*Customer, error)
	FindCustomerByCVR(ctx context.Context, db *gorm.DB, identityID int64, cvr string) (*Customer, error)
	CreateCustomer(ctx context.Context, db *gorm.DB, customer *Customer) error
	UpdateCustomer(ctx context.Context, db *gorm.DB, customer *Customer) error
}
