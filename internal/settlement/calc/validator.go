package calc

import (
	"fmt"
	"time"

	"github.com/nordvolt/voltra/internal/market"
	pricedomain "github.com/nordvolt/voltra/internal/price/domain"
	"github.com/nordvolt/voltra/internal/settlement/domain"
	spotdomain "github.com/nordvolt/voltra/internal/spotprice/domain"
)

// Issue is one reason a settlement run is blocked.
type Issue struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Both pricing models settle the regulated charges, so the same four
// categories must be linked regardless of how the energy itself is priced.
var requiredCategories = []market.PriceCategory{
	market.PriceCategoryNetTariff,
	market.PriceCategorySystemTariff,
	market.PriceCategoryTransmission,
	market.PriceCategoryTax,
}

// Validate checks the priced inputs cover the full period before any money
// is computed. It reports every problem at once, so one rerun after the
// operator loads the missing data settles the series.
func Validate(in Input) []Issue {
	var issues []Issue
	period := in.Period()

	present := make(map[market.PriceCategory]bool, len(in.Prices))
	for _, p := range in.Prices {
		present[market.PriceCategory(p.Price.Category)] = true
	}
	for _, category := range requiredCategories {
		if !present[category] {
			issues = append(issues, Issue{
				Kind:    domain.IssueMissingPriceElements,
				Message: fmt.Sprintf("no active %s price linked for %s", category, period),
			})
		}
	}

	if in.Margin == nil {
		issues = append(issues, Issue{
			Kind:    domain.IssueMissingPriceElements,
			Message: "no supplier margin in force for the period",
		})
	}

	if in.PricingModel == market.PricingSpotAddon {
		issues = append(issues, spotCoverage(in.Spot, in.PriceArea, period)...)
	}

	for _, p := range in.Prices {
		if issue := priceCoverage(p, period); issue != nil {
			issues = append(issues, *issue)
		}
	}

	return issues
}

// spotCoverage walks the period hour by hour and reports every stretch the
// curve leaves unpriced. An empty curve is reported as missing outright.
func spotCoverage(curve spotdomain.Curve, area market.PriceArea, period market.Period) []Issue {
	if len(curve) == 0 {
		return []Issue{{
			Kind:    domain.IssueMissingPriceElements,
			Message: fmt.Sprintf("no %s spot prices loaded for %s", area, period),
		}}
	}

	var issues []Issue
	var gapStart *time.Time
	flush := func(end time.Time) {
		if gapStart == nil {
			return
		}
		issues = append(issues, Issue{
			Kind:    domain.IssuePriceCoverageGap,
			Message: fmt.Sprintf("%s spot prices missing for [%s, %s)", area, formatInstant(*gapStart), formatInstant(end)),
		})
		gapStart = nil
	}
	for t := period.Start; t.Before(period.End); t = t.Add(time.Hour) {
		if _, ok := curve.RateAt(t); ok {
			flush(t)
			continue
		}
		if gapStart == nil {
			at := t
			gapStart = &at
		}
	}
	flush(period.End)
	return issues
}

// priceCoverage checks a time-varying price has a rate in force at every
// interval start of the period. Points arrive sorted and rates persist
// until replaced, so the only possible hole is before the first point.
func priceCoverage(p pricedomain.PriceWithPoints, period market.Period) *Issue {
	if market.PriceType(p.Price.Type) == market.PriceTypeFee {
		return nil
	}
	resolution, err := market.ParseResolution(p.Price.Resolution)
	if err != nil || resolution.Step() == 0 {
		return nil
	}
	if _, ok := p.RateAt(period.Start); ok {
		return nil
	}
	gapEnd := period.End
	if len(p.Points) > 0 && p.Points[0].Timestamp.Before(period.End) {
		gapEnd = p.Points[0].Timestamp
	}
	return &Issue{
		Kind:    domain.IssuePriceCoverageGap,
		Message: fmt.Sprintf("charge %s/%s has no rate for [%s, %s)", p.Price.ChargeID, p.Price.OwnerGLN, formatInstant(period.Start), formatInstant(gapEnd)),
	}
}

func formatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04Z")
}
