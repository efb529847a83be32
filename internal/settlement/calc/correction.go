package calc

import (
	"github.com/shopspring/decimal"

	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/internal/settlement/domain"
)

// lineKey identifies a charge across settlement versions. Energy lines
// have no charge id, so the source alone keys them.
type lineKey struct {
	Source   string
	ChargeID string
	OwnerGLN string
}

type billedCharge struct {
	description string
	unit        string
	quantity    decimal.Decimal
	amount      decimal.Decimal
}

// CalculateCorrection prices a corrected series version as a delta against
// everything already billed for the period. Each line carries new minus
// billed quantity and amount with the new weighted unit price; charges
// billed before but gone from the corrected inputs are reversed in full.
// Zero-delta subscription lines are dropped: day counts do not move with
// consumption, so repeating them would only add noise.
func CalculateCorrection(in Input, billedLines []domain.SettlementLine, billedEnergy decimal.Decimal) (*Result, error) {
	current, err := Calculate(in)
	if err != nil {
		return nil, err
	}

	baseline := make(map[lineKey]*billedCharge, len(billedLines))
	var billedOrder []lineKey
	for _, line := range billedLines {
		key := lineKey{Source: line.Source, ChargeID: line.ChargeID, OwnerGLN: line.OwnerGLN}
		agg, ok := baseline[key]
		if !ok {
			agg = &billedCharge{description: line.Description, unit: line.Unit}
			baseline[key] = agg
			billedOrder = append(billedOrder, key)
		}
		agg.quantity = agg.quantity.Add(line.Quantity)
		agg.amount = agg.amount.Add(line.Amount)
	}

	var lines []domain.SettlementLine
	covered := make(map[lineKey]bool, len(current.Lines))
	for _, line := range current.Lines {
		key := lineKey{Source: line.Source, ChargeID: line.ChargeID, OwnerGLN: line.OwnerGLN}
		covered[key] = true
		if agg, ok := baseline[key]; ok {
			line.Quantity = line.Quantity.Sub(agg.quantity)
			line.Amount = line.Amount.Sub(agg.amount)
		}
		if line.Source == domain.LineSourceSubscription && line.Quantity.IsZero() && line.Amount.IsZero() {
			continue
		}
		lines = append(lines, line)
	}

	for _, key := range billedOrder {
		if covered[key] {
			continue
		}
		agg := baseline[key]
		lines = append(lines, domain.SettlementLine{
			Source:      key.Source,
			ChargeID:    key.ChargeID,
			OwnerGLN:    key.OwnerGLN,
			Description: agg.description,
			Quantity:    agg.quantity.Neg(),
			Unit:        agg.unit,
			UnitPrice:   market.WeightedUnitPrice(agg.amount, agg.quantity),
			Amount:      agg.amount.Neg(),
		})
	}

	total := decimal.Zero
	for i := range lines {
		lines[i].Position = i + 1
		total = total.Add(lines[i].Amount)
	}

	return &Result{
		TotalEnergy: current.TotalEnergy.Sub(market.RoundEnergy(billedEnergy)),
		TotalAmount: market.RoundAmount(total),
		Lines:       lines,
	}, nil
}
