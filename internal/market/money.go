package market

import "github.com/shopspring/decimal"

// Decimal scales used across the engine. Rounding is half away from zero
// and happens at line boundaries; totals sum already-rounded amounts.
const (
	EnergyScale    = 3
	UnitPriceScale = 6
	AmountScale    = 2
)

// RoundEnergy rounds a kWh quantity to 3 fractional digits.
func RoundEnergy(d decimal.Decimal) decimal.Decimal { return d.Round(EnergyScale) }

// RoundUnitPrice rounds a per-kWh rate to 6 fractional digits.
func RoundUnitPrice(d decimal.Decimal) decimal.Decimal { return d.Round(UnitPriceScale) }

// RoundAmount rounds a monetary amount to 2 fractional digits.
func RoundAmount(d decimal.Decimal) decimal.Decimal { return d.Round(AmountScale) }

// WeightedUnitPrice derives a line's unit price from its unrounded amount
// and summed quantity. Zero quantity yields a zero rate.
func WeightedUnitPrice(amount, quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return decimal.Zero
	}
	return RoundUnitPrice(amount.Div(quantity))
}

// PerKWhFromMWh converts a per-MWh rate to per-kWh.
func PerKWhFromMWh(perMWh decimal.Decimal) decimal.Decimal {
	return perMWh.Div(decimal.NewFromInt(1000))
}
