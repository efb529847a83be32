package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordvolt/voltra/internal/market"
	pricedomain "github.com/nordvolt/voltra/internal/price/domain"
	"github.com/nordvolt/voltra/internal/settlement/domain"
	spotdomain "github.com/nordvolt/voltra/internal/spotprice/domain"
	tsdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
)

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func hourlySeries(quantity string) (tsdomain.TimeSeries, []tsdomain.Observation) {
	series := tsdomain.TimeSeries{
		ID:              101,
		MeteringPointID: 7,
		PeriodStart:     day,
		PeriodEnd:       day.Add(24 * time.Hour),
		Resolution:      market.ResolutionHour.String(),
		Version:         1,
	}
	q := decimal.RequireFromString(quantity)
	observations := make([]tsdomain.Observation, 0, 24)
	for i := 0; i < 24; i++ {
		observations = append(observations, tsdomain.Observation{
			TimeSeriesID: series.ID,
			Timestamp:    day.Add(time.Duration(i) * time.Hour),
			Quantity:     q,
			Quality:      string(market.QualityMeasured),
		})
	}
	return series, observations
}

func flatTariff(id int64, category market.PriceCategory, chargeID, rate string) pricedomain.PriceWithPoints {
	return pricedomain.PriceWithPoints{
		Price: pricedomain.Price{
			ID:         id,
			ChargeID:   chargeID,
			OwnerGLN:   "5790000432752",
			Type:       string(market.PriceTypeTariff),
			Category:   string(category),
			Resolution: market.ResolutionHour.String(),
			ValidFrom:  day.AddDate(-1, 0, 0),
		},
		Points: []pricedomain.PricePoint{
			{PriceID: id, Timestamp: day.AddDate(0, -1, 0), Rate: decimal.RequireFromString(rate)},
		},
	}
}

func flatCurve(mwhRate string, hours int) spotdomain.Curve {
	curve := make(spotdomain.Curve, 0, hours)
	for i := 0; i < hours; i++ {
		curve = append(curve, spotdomain.SpotPrice{
			PriceArea: market.PriceAreaDK1.String(),
			Hour:      day.Add(time.Duration(i) * time.Hour),
			PriceMWh:  decimal.RequireFromString(mwhRate),
		})
	}
	return curve
}

func marginOf(rate string) *decimal.Decimal {
	m := decimal.RequireFromString(rate)
	return &m
}

func TestCalculateFixedDay(t *testing.T) {
	series, observations := hourlySeries("1.0")
	result, err := Calculate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		PriceArea:    market.PriceAreaDK1,
		Prices: []pricedomain.PriceWithPoints{
			flatTariff(1, market.PriceCategoryNetTariff, "NT-2025", "0.50"),
		},
		Margin: marginOf("0.15"),
	})
	require.NoError(t, err)

	assert.Equal(t, "24.000", result.TotalEnergy.String())
	assert.Equal(t, "15.60", result.TotalAmount.String())
	require.Len(t, result.Lines, 2)

	energy := result.Lines[0]
	assert.Equal(t, domain.LineSourceMargin, energy.Source)
	assert.Equal(t, "3.60", energy.Amount.String())
	assert.Equal(t, "0.150000", energy.UnitPrice.String())
	assert.Equal(t, domain.UnitKWH, energy.Unit)

	tariff := result.Lines[1]
	assert.Equal(t, domain.LineSourceTariff, tariff.Source)
	assert.Equal(t, "NT-2025", tariff.ChargeID)
	assert.Equal(t, "24.000", tariff.Quantity.String())
	assert.Equal(t, "0.500000", tariff.UnitPrice.String())
	assert.Equal(t, "12.00", tariff.Amount.String())
	assert.Equal(t, 2, tariff.Position)
}

func TestCalculateSpotAddonPricesEachHour(t *testing.T) {
	series, observations := hourlySeries("1.0")
	curve := flatCurve("500", 12)
	for i := 12; i < 24; i++ {
		curve = append(curve, spotdomain.SpotPrice{
			PriceArea: market.PriceAreaDK1.String(),
			Hour:      day.Add(time.Duration(i) * time.Hour),
			PriceMWh:  decimal.RequireFromString("1000"),
		})
	}

	result, err := Calculate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingSpotAddon,
		PriceArea:    market.PriceAreaDK1,
		Spot:         curve,
		Margin:       marginOf("0.15"),
	})
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	spot := result.Lines[0]
	assert.Equal(t, domain.LineSourceSpot, spot.Source)
	assert.Equal(t, "18.00", spot.Amount.String())
	assert.Equal(t, "0.750000", spot.UnitPrice.String())

	margin := result.Lines[1]
	assert.Equal(t, domain.LineSourceMargin, margin.Source)
	assert.Equal(t, "3.60", margin.Amount.String())

	assert.Equal(t, "24.000", result.TotalEnergy.String())
	assert.Equal(t, "21.60", result.TotalAmount.String())
}

func TestCalculateSpotAddonFailsOnMissingHour(t *testing.T) {
	series, observations := hourlySeries("1.0")
	_, err := Calculate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingSpotAddon,
		PriceArea:    market.PriceAreaDK1,
		Spot:         flatCurve("500", 23),
		Margin:       marginOf("0.15"),
	})
	require.ErrorIs(t, err, ErrInputGap)
	assert.Contains(t, err.Error(), "2025-03-01T23:00Z")
}

func TestCalculateProratesSubscriptionByDays(t *testing.T) {
	series, observations := hourlySeries("1.0")
	subscription := pricedomain.PriceWithPoints{
		Price: pricedomain.Price{
			ID:         9,
			ChargeID:   "SUB-GRID",
			OwnerGLN:   "5790000432752",
			Type:       string(market.PriceTypeSubscription),
			Category:   string(market.PriceCategoryNetTariff),
			Resolution: market.ResolutionMonth.String(),
			ValidFrom:  day.AddDate(-1, 0, 0),
		},
		Points: []pricedomain.PricePoint{
			{PriceID: 9, Timestamp: day.AddDate(0, -2, 0), Rate: decimal.RequireFromString("62.00")},
		},
	}

	result, err := Calculate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Prices:       []pricedomain.PriceWithPoints{subscription},
		Margin:       marginOf("0.15"),
	})
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	line := result.Lines[1]
	assert.Equal(t, domain.LineSourceSubscription, line.Source)
	assert.Equal(t, domain.UnitDays, line.Unit)
	assert.Equal(t, "1.000", line.Quantity.String())
	// March has 31 days: 62.00 / 31 = 2.00 per day.
	assert.Equal(t, "2.00", line.Amount.String())
}

func TestCalculateKeepsOnlyFeeEventsInsidePeriod(t *testing.T) {
	series, observations := hourlySeries("1.0")
	fee := pricedomain.PriceWithPoints{
		Price: pricedomain.Price{
			ID:        11,
			ChargeID:  "FEE-RECONNECT",
			OwnerGLN:  "5790000432752",
			Type:      string(market.PriceTypeFee),
			Category:  string(market.PriceCategoryOther),
			ValidFrom: day.AddDate(-1, 0, 0),
		},
		Points: []pricedomain.PricePoint{
			{PriceID: 11, Timestamp: day.Add(10 * time.Hour), Rate: decimal.RequireFromString("150.00")},
			{PriceID: 11, Timestamp: day.Add(30 * time.Hour), Rate: decimal.RequireFromString("150.00")},
		},
	}

	result, err := Calculate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Prices:       []pricedomain.PriceWithPoints{fee},
		Margin:       marginOf("0.15"),
	})
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	line := result.Lines[1]
	assert.Equal(t, domain.LineSourceFee, line.Source)
	assert.Equal(t, domain.UnitEach, line.Unit)
	assert.Equal(t, "1.000", line.Quantity.String())
	assert.Equal(t, "150.00", line.Amount.String())
}

func TestCalculateRequiresMargin(t *testing.T) {
	series, observations := hourlySeries("1.0")
	_, err := Calculate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
	})
	require.ErrorIs(t, err, ErrInputGap)
}

func TestCorrectionBillsTheDelta(t *testing.T) {
	series, observations := hourlySeries("1.5")
	series.Version = 2
	billed := []domain.SettlementLine{
		{Source: domain.LineSourceMargin, Description: "Energy, fixed price", Quantity: decimal.RequireFromString("24.000"), Unit: domain.UnitKWH, UnitPrice: decimal.RequireFromString("0.150000"), Amount: decimal.RequireFromString("3.60")},
		{Source: domain.LineSourceTariff, ChargeID: "NT-2025", OwnerGLN: "5790000432752", Quantity: decimal.RequireFromString("24.000"), Unit: domain.UnitKWH, UnitPrice: decimal.RequireFromString("0.500000"), Amount: decimal.RequireFromString("12.00")},
	}

	result, err := CalculateCorrection(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Prices: []pricedomain.PriceWithPoints{
			flatTariff(1, market.PriceCategoryNetTariff, "NT-2025", "0.50"),
		},
		Margin: marginOf("0.15"),
	}, billed, decimal.RequireFromString("24.000"))
	require.NoError(t, err)

	assert.Equal(t, "12.000", result.TotalEnergy.String())
	assert.Equal(t, "7.80", result.TotalAmount.String())
	require.Len(t, result.Lines, 2)

	margin := result.Lines[0]
	assert.Equal(t, "12.000", margin.Quantity.String())
	assert.Equal(t, "1.80", margin.Amount.String())

	tariff := result.Lines[1]
	assert.Equal(t, "NT-2025", tariff.ChargeID)
	assert.Equal(t, "12.000", tariff.Quantity.String())
	assert.Equal(t, "6.00", tariff.Amount.String())
	// Unit price stays the full rate, not a delta rate.
	assert.Equal(t, "0.500000", tariff.UnitPrice.String())
}

func TestCorrectionReversesDroppedCharges(t *testing.T) {
	series, observations := hourlySeries("1.0")
	series.Version = 2
	billed := []domain.SettlementLine{
		{Source: domain.LineSourceMargin, Quantity: decimal.RequireFromString("24.000"), Unit: domain.UnitKWH, UnitPrice: decimal.RequireFromString("0.150000"), Amount: decimal.RequireFromString("3.60")},
		{Source: domain.LineSourceFee, ChargeID: "FEE-RECONNECT", OwnerGLN: "5790000432752", Description: "Reconnection", Quantity: decimal.RequireFromString("1.000"), Unit: domain.UnitEach, UnitPrice: decimal.RequireFromString("150.000000"), Amount: decimal.RequireFromString("150.00")},
	}

	result, err := CalculateCorrection(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Margin:       marginOf("0.15"),
	}, billed, decimal.RequireFromString("24.000"))
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	reversal := result.Lines[1]
	assert.Equal(t, domain.LineSourceFee, reversal.Source)
	assert.Equal(t, "-1.000", reversal.Quantity.String())
	assert.Equal(t, "-150.00", reversal.Amount.String())
	assert.Equal(t, "-150.00", result.TotalAmount.String())
	assert.True(t, result.TotalEnergy.IsZero())
}

func TestCorrectionOmitsUnchangedSubscriptions(t *testing.T) {
	series, observations := hourlySeries("1.5")
	series.Version = 2
	subscription := pricedomain.PriceWithPoints{
		Price: pricedomain.Price{
			ID:         9,
			ChargeID:   "SUB-GRID",
			OwnerGLN:   "5790000432752",
			Type:       string(market.PriceTypeSubscription),
			Category:   string(market.PriceCategoryNetTariff),
			Resolution: market.ResolutionMonth.String(),
			ValidFrom:  day.AddDate(-1, 0, 0),
		},
		Points: []pricedomain.PricePoint{
			{PriceID: 9, Timestamp: day.AddDate(0, -2, 0), Rate: decimal.RequireFromString("62.00")},
		},
	}
	billed := []domain.SettlementLine{
		{Source: domain.LineSourceMargin, Quantity: decimal.RequireFromString("24.000"), Unit: domain.UnitKWH, UnitPrice: decimal.RequireFromString("0.150000"), Amount: decimal.RequireFromString("3.60")},
		{Source: domain.LineSourceSubscription, ChargeID: "SUB-GRID", OwnerGLN: "5790000432752", Quantity: decimal.RequireFromString("1.000"), Unit: domain.UnitDays, UnitPrice: decimal.RequireFromString("2.000000"), Amount: decimal.RequireFromString("2.00")},
	}

	result, err := CalculateCorrection(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Prices:       []pricedomain.PriceWithPoints{subscription},
		Margin:       marginOf("0.15"),
	}, billed, decimal.RequireFromString("24.000"))
	require.NoError(t, err)

	for _, line := range result.Lines {
		assert.NotEqual(t, domain.LineSourceSubscription, line.Source)
	}
	assert.Equal(t, "1.80", result.TotalAmount.String())
}

func TestValidateNamesEveryMissingCategory(t *testing.T) {
	series, observations := hourlySeries("1.0")
	issues := Validate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Prices: []pricedomain.PriceWithPoints{
			flatTariff(1, market.PriceCategoryNetTariff, "NT-2025", "0.50"),
		},
		Margin: marginOf("0.15"),
	})

	require.Len(t, issues, 3)
	var named []string
	for _, issue := range issues {
		assert.Equal(t, domain.IssueMissingPriceElements, issue.Kind)
		named = append(named, issue.Message)
	}
	assert.Contains(t, named[0], "SystemTariff")
	assert.Contains(t, named[1], "Transmission")
	assert.Contains(t, named[2], "Tax")
}

func TestValidateReportsMissingMargin(t *testing.T) {
	series, observations := hourlySeries("1.0")
	issues := Validate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Prices:       fullTariffSet(),
	})
	require.Len(t, issues, 1)
	assert.Equal(t, domain.IssueMissingPriceElements, issues[0].Kind)
	assert.Contains(t, issues[0].Message, "margin")
}

func TestValidateNamesSpotGapInterval(t *testing.T) {
	series, observations := hourlySeries("1.0")
	issues := Validate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingSpotAddon,
		PriceArea:    market.PriceAreaDK1,
		Prices:       fullTariffSet(),
		Spot:         flatCurve("500", 12),
		Margin:       marginOf("0.15"),
	})

	require.Len(t, issues, 1)
	assert.Equal(t, domain.IssuePriceCoverageGap, issues[0].Kind)
	assert.Contains(t, issues[0].Message, "[2025-03-01T12:00Z, 2025-03-02T00:00Z)")
}

func TestValidateEmptySpotCurveIsMissingOutright(t *testing.T) {
	series, observations := hourlySeries("1.0")
	issues := Validate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingSpotAddon,
		PriceArea:    market.PriceAreaDK2,
		Prices:       fullTariffSet(),
		Margin:       marginOf("0.15"),
	})

	require.Len(t, issues, 1)
	assert.Equal(t, domain.IssueMissingPriceElements, issues[0].Kind)
	assert.Contains(t, issues[0].Message, "DK2")
}

func TestValidateFlagsRateStartingAfterPeriod(t *testing.T) {
	series, observations := hourlySeries("1.0")
	late := flatTariff(4, market.PriceCategoryTax, "TAX-EL", "0.76")
	late.Points[0].Timestamp = day.Add(6 * time.Hour)

	prices := fullTariffSet()
	prices[3] = late

	issues := Validate(Input{
		Series:       series,
		Observations: observations,
		PricingModel: market.PricingFixed,
		Prices:       prices,
		Margin:       marginOf("0.15"),
	})

	require.Len(t, issues, 1)
	assert.Equal(t, domain.IssuePriceCoverageGap, issues[0].Kind)
	assert.Contains(t, issues[0].Message, "TAX-EL")
	assert.Contains(t, issues[0].Message, "[2025-03-01T00:00Z, 2025-03-01T06:00Z)")
}

func fullTariffSet() []pricedomain.PriceWithPoints {
	return []pricedomain.PriceWithPoints{
		flatTariff(1, market.PriceCategoryNetTariff, "NT-2025", "0.30"),
		flatTariff(2, market.PriceCategorySystemTariff, "ST-2025", "0.054"),
		flatTariff(3, market.PriceCategoryTransmission, "TR-2025", "0.049"),
		flatTariff(4, market.PriceCategoryTax, "TAX-EL", "0.76"),
	}
}
