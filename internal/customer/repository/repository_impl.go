package repository

import (
	"context"
	"time"

	"github.com/nordvolt/voltra/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindIdentityByGLN(ctx context.Context, db *gorm.DB, gln string) (*domain.SupplierIdentity, error) {
	var identity domain.SupplierIdentity
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM supplier_identities WHERE gln = ? LIMIT 1`, gln).
		Scan(&identity).Error
	if err != nil {
		return nil, err
	}
	if identity.ID == 0 {
		return nil, nil
	}
	return &identity, nil
}

func (r *repo) CreateIdentity(ctx context.Context, db *gorm.DB, identity *domain.SupplierIdentity) error {
	return db.WithContext(ctx).Create(identity).Error
}

func (r *repo) FindCustomerByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM customers WHERE id = ? LIMIT 1`, id).
		Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindCustomerByCPR(ctx context.Context, db *gorm.DB, identityID int64, cpr string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM customers WHERE supplier_identity_id = ? AND cpr = ? LIMIT 1`,
			identityID, cpr).
		Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindCustomerByCVR(ctx context.Context, db *gorm.DB, identityID int64, cvr string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM customers WHERE supplier_identity_id = ? AND cvr = ? LIMIT 1`,
			identityID, cvr).
		Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) CreateCustomer(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) UpdateCustomer(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	customer.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(customer).Error
}
