package domain

import (
	"time"
)

const (
	IdentityActive   = "active"
	IdentityLegacy   = "legacy"
	IdentityArchived = "archived"
)

// SupplierIdentity is a GLN under which this retailer acts in the market.
// Older identities stay around as legacy so historic documents still
// resolve to a known party.
type SupplierIdentity struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	GLN       string    `json:"gln" gorm:"type:varchar(13);not null;uniqueIndex:ux_supplier_identities_gln"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Status    string    `json:"status" gorm:"type:text;not null;default:active"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SupplierIdentity) TableName() string { return "supplier_identities" }

// Customer is an end customer, identified by exactly one of CPR (private)
// or CVR (business).
type Customer struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	SupplierIdentityID int64     `json:"supplier_identity_id" gorm:"not null;index:ix_customers_identity"`
	Name               string    `json:"name" gorm:"type:text;not null"`
	CPR                *string   `json:"-" gorm:"type:varchar(10);index:ix_customers_cpr"`
	CVR                *string   `json:"cvr,omitempty" gorm:"type:varchar(8);index:ix_customers_cvr"`
	CreatedAt          time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Customer) TableName() string { return "customers" }

// IsBusiness reports whether the customer is registered by CVR.
func (c Customer) IsBusiness() bool { return c.CVR != nil && *c.CVR != "" }
