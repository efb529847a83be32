package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nordvolt/voltra/internal/market"
)

// SpotPrice is one hour of the day-ahead auction result for a bidding zone.
// The exchange publishes DKK per MWh; settlement rates energy per kWh.
type SpotPrice struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	PriceArea string          `json:"price_area" gorm:"type:varchar(8);not null;uniqueIndex:ux_spot_prices_area_hour,priority:1"`
	Hour      time.Time       `json:"hour" gorm:"not null;uniqueIndex:ux_spot_prices_area_hour,priority:2"`
	PriceMWh  decimal.Decimal `json:"price_mwh" gorm:"column:price_mwh;type:decimal(18,6);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SpotPrice) TableName() string { return "spot_prices" }

// PerKWh converts the auction price to the per-kWh rate used on settlement
// lines.
func (p SpotPrice) PerKWh() decimal.Decimal {
	return market.PerKWhFromMWh(p.PriceMWh)
}

// Quote is one fetched auction hour before persistence.
type Quote struct {
	Hour     time.Time
	PriceMWh decimal.Decimal
}

// Curve is a set of hourly points for one area, ordered by hour ascending.
type Curve []SpotPrice

// RateAt resolves the per-kWh rate for the hour containing t. The second
// return is false when that hour has no published price.
func (c Curve) RateAt(t time.Time) (decimal.Decimal, bool) {
	idx := sort.Search(len(c), func(i int) bool {
		return c[i].Hour.After(t)
	})
	if idx == 0 {
		return decimal.Zero, false
	}
	point := c[idx-1]
	if t.Sub(point.Hour) >= time.Hour {
		return decimal.Zero, false
	}
	return point.PerKWh(), true
}
