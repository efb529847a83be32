// Package calc turns one versioned time series plus its price inputs into
// settlement lines. It is pure: no database, no clock, no randomness, so
// recalculating a period with the same inputs always yields the same money.
package calc

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nordvolt/voltra/internal/market"
	pricedomain "github.com/nordvolt/voltra/internal/price/domain"
	"github.com/nordvolt/voltra/internal/settlement/domain"
	spotdomain "github.com/nordvolt/voltra/internal/spotprice/domain"
	tsdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
)

// ErrInputGap reports a hole in the priced inputs: an observation with no
// spot rate, a tariff with no point in force, a missing margin. Validation
// runs first, so hitting this during calculation means the inputs changed
// between the two passes.
var ErrInputGap = errors.New("settlement input gap")

// Input carries everything one settlement run needs, resolved up front.
type Input struct {
	Series       tsdomain.TimeSeries
	Observations []tsdomain.Observation
	PricingModel market.PricingModel
	PriceArea    market.PriceArea
	Prices       []pricedomain.PriceWithPoints
	Spot         spotdomain.Curve
	Margin       *decimal.Decimal
}

// Period returns the settlement window of the series.
func (in Input) Period() market.Period {
	return market.Period{Start: in.Series.PeriodStart, End: in.Series.PeriodEnd}
}

// Result is the priced outcome for one series version. Lines are ordered
// energy first, then the linked charges in the order they were resolved.
type Result struct {
	TotalEnergy decimal.Decimal
	TotalAmount decimal.Decimal
	Lines       []domain.SettlementLine
}

// Calculate prices a series version. Every observation is priced at the
// rate in force at its interval start; line amounts are rounded once and
// the total sums the rounded lines.
func Calculate(in Input) (*Result, error) {
	if len(in.Observations) == 0 {
		return nil, fmt.Errorf("%w: series %d has no observations", ErrInputGap, in.Series.ID)
	}
	period := in.Period()

	totalEnergy := decimal.Zero
	for _, obs := range in.Observations {
		totalEnergy = totalEnergy.Add(obs.Quantity)
	}

	lines, err := energyLines(in, totalEnergy)
	if err != nil {
		return nil, err
	}

	for _, price := range in.Prices {
		switch market.PriceType(price.Price.Type) {
		case market.PriceTypeTariff:
			line, err := tariffLine(price, in.Observations)
			if err != nil {
				return nil, err
			}
			lines = append(lines, *line)
		case market.PriceTypeSubscription:
			if line := subscriptionLine(price, period); line != nil {
				lines = append(lines, *line)
			}
		case market.PriceTypeFee:
			lines = append(lines, feeLines(price, period)...)
		default:
			return nil, fmt.Errorf("%w: charge %s has unknown type %q", ErrInputGap, price.Price.ChargeID, price.Price.Type)
		}
	}

	total := decimal.Zero
	for i := range lines {
		lines[i].Position = i + 1
		total = total.Add(lines[i].Amount)
	}

	return &Result{
		TotalEnergy: market.RoundEnergy(totalEnergy),
		TotalAmount: market.RoundAmount(total),
		Lines:       lines,
	}, nil
}

// energyLines builds the commodity lines for the product's pricing model.
// Spot-addon products pay the hourly exchange price plus a per-kWh margin;
// fixed products pay the margin rate alone.
func energyLines(in Input, totalEnergy decimal.Decimal) ([]domain.SettlementLine, error) {
	if in.Margin == nil {
		return nil, fmt.Errorf("%w: no supplier margin in force", ErrInputGap)
	}

	switch in.PricingModel {
	case market.PricingSpotAddon:
		spotAmount := decimal.Zero
		for _, obs := range in.Observations {
			rate, ok := in.Spot.RateAt(obs.Timestamp)
			if !ok {
				return nil, fmt.Errorf("%w: no %s spot price at %s", ErrInputGap, in.PriceArea, formatInstant(obs.Timestamp))
			}
			spotAmount = spotAmount.Add(obs.Quantity.Mul(rate))
		}
		return []domain.SettlementLine{
			newLine(domain.LineSourceSpot, "", "", "Spot purchase "+in.PriceArea.String(), totalEnergy, domain.UnitKWH, spotAmount),
			newLine(domain.LineSourceMargin, "", "", "Supplier margin", totalEnergy, domain.UnitKWH, totalEnergy.Mul(*in.Margin)),
		}, nil
	case market.PricingFixed:
		return []domain.SettlementLine{
			newLine(domain.LineSourceMargin, "", "", "Energy, fixed price", totalEnergy, domain.UnitKWH, totalEnergy.Mul(*in.Margin)),
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown pricing model %q", ErrInputGap, in.PricingModel)
}

// tariffLine prices every observation at the tariff rate in force at the
// interval start and emits one aggregated line for the charge.
func tariffLine(p pricedomain.PriceWithPoints, observations []tsdomain.Observation) (*domain.SettlementLine, error) {
	quantity := decimal.Zero
	amount := decimal.Zero
	for _, obs := range observations {
		rate, ok := p.RateAt(obs.Timestamp)
		if !ok {
			return nil, fmt.Errorf("%w: charge %s/%s has no rate at %s", ErrInputGap, p.Price.ChargeID, p.Price.OwnerGLN, formatInstant(obs.Timestamp))
		}
		quantity = quantity.Add(obs.Quantity)
		amount = amount.Add(obs.Quantity.Mul(rate))
	}
	line := newLine(domain.LineSourceTariff, p.Price.ChargeID, p.Price.OwnerGLN, chargeDescription(p.Price), quantity, domain.UnitKWH, amount)
	return &line, nil
}

// subscriptionLine prorates a monthly subscription over the days of the
// period: each day costs the monthly rate in force divided by the length
// of that day's month. Days with no rate in force do not charge, and a
// period entirely before the first point yields no line at all.
func subscriptionLine(p pricedomain.PriceWithPoints, period market.Period) *domain.SettlementLine {
	days := 0
	amount := decimal.Zero
	for day := period.Start; day.Before(period.End); day = day.Add(24 * time.Hour) {
		rate, ok := p.RateAt(day)
		if !ok {
			continue
		}
		amount = amount.Add(rate.Div(decimal.NewFromInt(int64(daysInMonth(day)))))
		days++
	}
	if days == 0 {
		return nil
	}
	line := newLine(domain.LineSourceSubscription, p.Price.ChargeID, p.Price.OwnerGLN, chargeDescription(p.Price), decimal.NewFromInt(int64(days)), domain.UnitDays, amount)
	return &line
}

// feeLines emits one line per fee event falling inside the period. Fee
// points are events, not rates, so a point outside the window is simply
// not this period's business.
func feeLines(p pricedomain.PriceWithPoints, period market.Period) []domain.SettlementLine {
	var lines []domain.SettlementLine
	for _, point := range p.Points {
		if !period.Contains(point.Timestamp) {
			continue
		}
		lines = append(lines, newLine(domain.LineSourceFee, p.Price.ChargeID, p.Price.OwnerGLN, chargeDescription(p.Price), decimal.NewFromInt(1), domain.UnitEach, point.Rate))
	}
	return lines
}

func newLine(source, chargeID, ownerGLN, description string, quantity decimal.Decimal, unit string, amount decimal.Decimal) domain.SettlementLine {
	rounded := market.RoundAmount(amount)
	return domain.SettlementLine{
		Source:      source,
		ChargeID:    chargeID,
		OwnerGLN:    ownerGLN,
		Description: description,
		Quantity:    market.RoundEnergy(quantity),
		Unit:        unit,
		UnitPrice:   market.WeightedUnitPrice(rounded, quantity),
		Amount:      rounded,
	}
}

func chargeDescription(p pricedomain.Price) string {
	if p.Description != "" {
		return p.Description
	}
	return p.Category
}

func daysInMonth(t time.Time) int {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
