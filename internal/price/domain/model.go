package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Price is one charge owned by a market party: a grid or transmission
// tariff, the electricity tax, a subscription or a fee. The pair
// (charge_id, owner_gln) is the market-wide identity.
type Price struct {
	ID            int64      `json:"id" gorm:"primaryKey"`
	ChargeID      string     `json:"charge_id" gorm:"type:text;not null;uniqueIndex:ux_prices_charge_owner,priority:1"`
	OwnerGLN      string     `json:"owner_gln" gorm:"type:varchar(13);not null;uniqueIndex:ux_prices_charge_owner,priority:2"`
	Type          string     `json:"type" gorm:"type:text;not null"`
	Category      string     `json:"category" gorm:"type:text;not null"`
	Description   string     `json:"description" gorm:"type:text"`
	VATExempt     bool       `json:"vat_exempt" gorm:"not null;default:false"`
	IsTax         bool       `json:"is_tax" gorm:"not null;default:false"`
	IsPassThrough bool       `json:"is_pass_through" gorm:"not null;default:false"`
	Resolution    string     `json:"resolution" gorm:"type:text"`
	ValidFrom     time.Time  `json:"valid_from" gorm:"not null"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Price) TableName() string { return "prices" }

// PricePoint is the rate taking effect at Timestamp. For tariffs the rate
// is DKK per kWh, for subscriptions DKK per month, for fees DKK per event.
type PricePoint struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	PriceID   int64           `json:"price_id" gorm:"not null;uniqueIndex:ux_price_points_price_ts,priority:1"`
	Timestamp time.Time       `json:"timestamp" gorm:"not null;uniqueIndex:ux_price_points_price_ts,priority:2"`
	Rate      decimal.Decimal `json:"rate" gorm:"type:decimal(18,6);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PricePoint) TableName() string { return "price_points" }

// PriceLink attaches a price to a metering point over a half-open range.
type PriceLink struct {
	ID              int64      `json:"id" gorm:"primaryKey"`
	PriceID         int64      `json:"price_id" gorm:"not null;index:ix_price_links_price"`
	MeteringPointID int64      `json:"metering_point_id" gorm:"not null;index:ix_price_links_metering_point"`
	StartAt         time.Time  `json:"start_at" gorm:"not null"`
	EndAt           *time.Time `json:"end_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceLink) TableName() string { return "price_links" }

// PriceWithPoints is a price and the points relevant for one settlement
// period: every point inside the period plus the last one before it.
type PriceWithPoints struct {
	Price  Price
	Points []PricePoint
}

// RateAt resolves the rate in force at t: the point with the greatest
// timestamp not after t. The second return is false when no point covers t.
func (p PriceWithPoints) RateAt(t time.Time) (decimal.Decimal, bool) {
	idx := sort.Search(len(p.Points), func(i int) bool {
		return p.Points[i].Timestamp.After(t)
	})
	if idx == 0 {
		return decimal.Zero, false
	}
	return p.Points[idx-1].Rate, true
}
