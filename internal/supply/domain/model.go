package domain

import (
	"time"
)

// Supply is one delivery relationship: this retailer supplies a metering
// point for a customer from StartAt until EndAt. An open supply has no end.
// A metering point has at most one open supply.
type Supply struct {
	ID              int64      `json:"id" gorm:"primaryKey"`
	MeteringPointID int64      `json:"metering_point_id" gorm:"not null;index:ix_supplies_metering_point"`
	CustomerID      int64      `json:"customer_id" gorm:"not null;index:ix_supplies_customer"`
	StartAt         time.Time  `json:"start_at" gorm:"not null"`
	EndAt           *time.Time `json:"end_at,omitempty"`
	TransactionID   string     `json:"transaction_id" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Supply) TableName() string { return "supplies" }

// Covers reports whether the supply is in force at the instant t.
func (s Supply) Covers(t time.Time) bool {
	if t.Before(s.StartAt) {
		return false
	}
	return s.EndAt == nil || t.Before(*s.EndAt)
}
