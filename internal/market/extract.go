package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WireObservation is a normalized point of a delivered series. Timestamp
// is the interval start derived from the wire position.
type WireObservation struct {
	Timestamp time.Time
	Quantity  decimal.Decimal
	Quality   Quality
}

// MeteredDataSeries is one normalized series of a BRS-021 document.
type MeteredDataSeries struct {
	GSRN          GSRN
	TransactionID string
	Period        Period
	Resolution    Resolution
	Observations  []WireObservation
}

// ExtractMeteredData normalizes every series of a BRS-021 document.
func ExtractMeteredData(env *Envelope) ([]MeteredDataSeries, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no series", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]MeteredDataSeries, 0, len(records))
	for i, rec := range records {
		series, err := extractMeteredSeries(rec)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		out = append(out, *series)
	}
	return out, nil
}

func extractMeteredSeries(rec Fields) (*MeteredDataSeries, error) {
	raw, ok := rec.String("marketEvaluationPoint.mRID", "meteringPointId", "gsrn")
	if !ok {
		return nil, fmt.Errorf("missing metering point identifier")
	}
	gsrn, err := ParseGSRN(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	txID, _ := rec.String("mRID", "transactionId")
	res, period, obs, err := extractPointPeriods(rec)
	if err != nil {
		return nil, err
	}
	if res != ResolutionHour && res != ResolutionQuarterHour {
		return nil, fmt.Errorf("resolution %s not valid for metered data", res)
	}
	return &MeteredDataSeries{
		GSRN:          gsrn,
		TransactionID: txID,
		Period:        period,
		Resolution:    res,
		Observations:  obs,
	}, nil
}

// extractPointPeriods walks the series' period records, which the wire may
// deliver as a single object or an array of sub-periods (one per day, or
// split at clock changes). Observations are merged; the returned period
// spans all sub-periods.
func extractPointPeriods(rec Fields) (Resolution, Period, []WireObservation, error) {
	periods := rec.Objects("Period", "period")
	if len(periods) == 0 {
		return "", Period{}, nil, fmt.Errorf("missing period")
	}
	var (
		res   Resolution
		start time.Time
		end   time.Time
		obs   []WireObservation
	)
	for _, p := range periods {
		pres, interval, pobs, err := extractOnePeriod(p)
		if err != nil {
			return "", Period{}, nil, err
		}
		if res == "" {
			res = pres
		} else if res != pres {
			return "", Period{}, nil, fmt.Errorf("mixed resolutions %s and %s", res, pres)
		}
		if start.IsZero() || interval.Start.Before(start) {
			start = interval.Start
		}
		if interval.End.After(end) {
			end = interval.End
		}
		obs = append(obs, pobs...)
	}
	period, err := NewPeriod(start, end)
	if err != nil {
		return "", Period{}, nil, err
	}
	return res, period, obs, nil
}

func extractOnePeriod(p Fields) (Resolution, Period, []WireObservation, error) {
	rawRes, ok := p.String("resolution")
	if !ok {
		return "", Period{}, nil, fmt.Errorf("period missing resolution")
	}
	res, err := ParseResolution(rawRes)
	if err != nil {
		return "", Period{}, nil, err
	}
	interval, err := extractInterval(p)
	if err != nil {
		return "", Period{}, nil, err
	}
	points := p.Objects("Point", "points", "observations")
	obs := make([]WireObservation, 0, len(points))
	for i, pt := range points {
		pos, ok := pt.Int("position")
		if !ok {
			pos = i + 1
		}
		qty, ok := pt.Decimal("quantity", "energyQuantity")
		if !ok {
			return "", Period{}, nil, fmt.Errorf("point %d: missing quantity", pos)
		}
		quality := QualityMeasured
		if rawQ, ok := pt.String("quality"); ok {
			quality, err = QualityFromWire(rawQ)
			if err != nil {
				return "", Period{}, nil, fmt.Errorf("point %d: %w", pos, err)
			}
		}
		obs = append(obs, WireObservation{
			Timestamp: res.ObservationTime(interval.Start, pos),
			Quantity:  qty,
			Quality:   quality,
		})
	}
	return res, interval, obs, nil
}

// extractInterval accepts the nested timeInterval form and the flat
// start/end form. The end may be absent for open-ended validities.
func extractInterval(f Fields) (Period, error) {
	src := f
	if nested, ok := f.Object("timeInterval", "interval"); ok {
		src = nested
	}
	start, ok := src.Time("start", "startDate", "start_DateAndOrTime.dateTime")
	if !ok {
		return Period{}, fmt.Errorf("missing interval start")
	}
	end, _ := src.Time("end", "endDate", "end_DateAndOrTime.dateTime")
	return NewPeriod(start, end)
}

// Address is the optional service address of a metering point.
type Address struct {
	Street     string
	Number     string
	PostalCode string
	City       string
}

// MasterDataChange is a normalized BRS-006 partial update. Nil members are
// absent on the wire and leave the stored value untouched.
type MasterDataChange struct {
	GSRN             GSRN
	TransactionID    string
	EffectiveDate    time.Time
	Type             *MeteringPointType
	Category         *MeteringPointCategory
	SettlementMethod *SettlementMethod
	Resolution       *Resolution
	ConnectionState  *ConnectionState
	GridAreaCode     *string
	GridCompany      *GLN
	Address          *Address
}

// ExtractMasterData normalizes every record of a BRS-006 document.
func ExtractMasterData(env *Envelope) ([]MasterDataChange, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no records", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]MasterDataChange, 0, len(records))
	for i, rec := range records {
		ch, err := extractMasterDataRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, *ch)
	}
	return out, nil
}

func extractMasterDataRecord(rec Fields) (*MasterDataChange, error) {
	raw, ok := rec.String("marketEvaluationPoint.mRID", "meteringPointId", "gsrn")
	if !ok {
		return nil, fmt.Errorf("missing metering point identifier")
	}
	gsrn, err := ParseGSRN(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	ch := &MasterDataChange{GSRN: gsrn}
	ch.TransactionID, _ = rec.String("mRID", "transactionId")
	ch.EffectiveDate, _ = rec.Time("validityStart_DateAndOrTime.dateTime", "effectiveDate")

	if s, ok := rec.String("marketEvaluationPoint.type", "type"); ok {
		v, err := ParseMeteringPointType(s)
		if err != nil {
			return nil, err
		}
		ch.Type = &v
	}
	if s, ok := rec.String("meteringMethod", "category"); ok {
		v, err := ParseMeteringPointCategory(s)
		if err != nil {
			return nil, err
		}
		ch.Category = &v
	}
	if s, ok := rec.String("settlementMethod"); ok {
		v, err := ParseSettlementMethod(s)
		if err != nil {
			return nil, err
		}
		ch.SettlementMethod = &v
	}
	if s, ok := rec.String("meterReadingPeriodicity", "resolution"); ok {
		v, err := ParseResolution(s)
		if err != nil {
			return nil, err
		}
		if v != ResolutionHour && v != ResolutionQuarterHour {
			return nil, fmt.Errorf("resolution %s not valid for a metering point", v)
		}
		ch.Resolution = &v
	}
	if s, ok := rec.String("physicalConnectionState", "connectionState"); ok {
		v, err := ParseConnectionState(s)
		if err != nil {
			return nil, err
		}
		ch.ConnectionState = &v
	}
	if s, ok := rec.String("meteringGridArea_Domain.mRID", "gridAreaCode"); ok {
		s = strings.TrimSpace(s)
		ch.GridAreaCode = &s
	}
	if s, ok := rec.String("gridOperator_MarketParticipant.mRID", "gridCompanyId"); ok {
		gln, err := ParseGLN(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		ch.GridCompany = &gln
	}
	if addr, ok := rec.Object("usagePointLocation.mainAddress", "address"); ok {
		a := &Address{}
		a.Street, _ = addr.String("streetName", "street")
		a.Number, _ = addr.String("buildingNumber", "number")
		a.PostalCode, _ = addr.String("postalCode", "postcode")
		a.City, _ = addr.String("cityName", "city")
		ch.Address = a
	}
	return ch, nil
}

// SupplyEvent is a normalized supply lifecycle message: a confirmed or
// rejected supplier change (BRS-001) or a customer move (BRS-009).
type SupplyEvent struct {
	GSRN          GSRN
	TransactionID string
	EffectiveDate time.Time
	Accepted      bool
	Reason        string
	CustomerName  string
	CPR           CPR
	CVR           CVR
	MoveOut       bool
}

// ExtractSupplyChange normalizes a BRS-001 confirmation or rejection.
func ExtractSupplyChange(env *Envelope) ([]SupplyEvent, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no records", ErrMalformedDocument, env.DocumentName)
	}
	accepted := !env.IsRejection()
	out := make([]SupplyEvent, 0, len(records))
	for i, rec := range records {
		ev, err := extractSupplyEvent(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ev.Accepted = accepted
		out = append(out, *ev)
	}
	return out, nil
}

// ExtractMove normalizes a BRS-009 move-in or move-out.
func ExtractMove(env *Envelope) ([]SupplyEvent, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no records", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]SupplyEvent, 0, len(records))
	for i, rec := range records {
		ev, err := extractSupplyEvent(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ev.Accepted = !env.IsRejection()
		if s, ok := rec.String("moveType", "direction"); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "movein", "e65":
				ev.MoveOut = false
			case "moveout", "e66":
				ev.MoveOut = true
			default:
				return nil, fmt.Errorf("record %d: unknown move type %q", i, s)
			}
		}
		out = append(out, *ev)
	}
	return out, nil
}

func extractSupplyEvent(rec Fields) (*SupplyEvent, error) {
	raw, ok := rec.String("marketEvaluationPoint.mRID", "meteringPointId", "gsrn")
	if !ok {
		return nil, fmt.Errorf("missing metering point identifier")
	}
	gsrn, err := ParseGSRN(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	ev := &SupplyEvent{GSRN: gsrn}
	ev.TransactionID, _ = rec.String("mRID", "transactionId")
	ev.EffectiveDate, ok = rec.Time("start_DateAndOrTime.dateTime", "effectiveDate")
	if !ok {
		return nil, fmt.Errorf("missing effective date")
	}
	ev.Reason, _ = rec.String("reason.text", "reason")
	ev.CustomerName, _ = rec.String("customer_MarketParticipant.name", "customerName")
	if s, ok := rec.String("customer_MarketParticipant.mRID", "customerId"); ok {
		s = strings.TrimSpace(s)
		switch len(s) {
		case 10:
			cpr, err := ParseCPR(s)
			if err != nil {
				return nil, err
			}
			ev.CPR = cpr
		case 8:
			cvr, err := ParseCVR(s)
			if err != nil {
				return nil, err
			}
			ev.CVR = cvr
		default:
			return nil, fmt.Errorf("customer identifier %q is neither a personal nor a company number", s)
		}
	}
	return ev, nil
}

// AggregatedSeries is a normalized BRS-023 grid-area series.
type AggregatedSeries struct {
	GridAreaCode  string
	TransactionID string
	Period        Period
	Resolution    Resolution
	Observations  []WireObservation
}

// ExtractAggregatedData normalizes every series of a BRS-023 document.
func ExtractAggregatedData(env *Envelope) ([]AggregatedSeries, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no series", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]AggregatedSeries, 0, len(records))
	for i, rec := range records {
		area, ok := rec.String("meteringGridArea_Domain.mRID", "gridAreaCode")
		if !ok {
			return nil, fmt.Errorf("series %d: missing grid area", i)
		}
		txID, _ := rec.String("mRID", "transactionId")
		res, period, obs, err := extractPointPeriods(rec)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		out = append(out, AggregatedSeries{
			GridAreaCode:  strings.TrimSpace(area),
			TransactionID: txID,
			Period:        period,
			Resolution:    res,
			Observations:  obs,
		})
	}
	return out, nil
}

// WholesaleSeries is a normalized BRS-027 settlement line from the market
// operator.
type WholesaleSeries struct {
	GridAreaCode  string
	ChargeID      string
	ChargeOwner   GLN
	ChargeType    PriceType
	TransactionID string
	Period        Period
	Quantity      decimal.Decimal
	Amount        decimal.Decimal
	Currency      string
}

// ExtractWholesale normalizes every series of a BRS-027 document.
func ExtractWholesale(env *Envelope) ([]WholesaleSeries, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no series", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]WholesaleSeries, 0, len(records))
	for i, rec := range records {
		ws, err := extractWholesaleSeries(rec)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		out = append(out, *ws)
	}
	return out, nil
}

func extractWholesaleSeries(rec Fields) (*WholesaleSeries, error) {
	area, ok := rec.String("meteringGridArea_Domain.mRID", "gridAreaCode")
	if !ok {
		return nil, fmt.Errorf("missing grid area")
	}
	chargeID, ok := rec.String("chargeType.mRID", "chargeId")
	if !ok {
		return nil, fmt.Errorf("missing charge identifier")
	}
	rawOwner, ok := rec.String("chargeTypeOwner_MarketParticipant.mRID", "chargeOwner")
	if !ok {
		return nil, fmt.Errorf("missing charge owner")
	}
	owner, err := ParseGLN(strings.TrimSpace(rawOwner))
	if err != nil {
		return nil, err
	}
	chargeType := PriceTypeTariff
	if s, ok := rec.String("chargeType.type", "chargeType"); ok {
		chargeType, err = ParsePriceType(s)
		if err != nil {
			return nil, err
		}
	}
	period, err := extractInterval(rec)
	if err != nil {
		return nil, err
	}
	qty, ok := rec.Decimal("totalQuantity", "quantity")
	if !ok {
		return nil, fmt.Errorf("missing quantity")
	}
	amount, ok := rec.Decimal("amount", "amount_Sum")
	if !ok {
		return nil, fmt.Errorf("missing amount")
	}
	currency, ok := rec.String("currency_Unit.name", "currency")
	if !ok {
		currency = "DKK"
	}
	txID, _ := rec.String("mRID", "transactionId")
	return &WholesaleSeries{
		GridAreaCode:  strings.TrimSpace(area),
		ChargeID:      strings.TrimSpace(chargeID),
		ChargeOwner:   owner,
		ChargeType:    chargeType,
		TransactionID: txID,
		Period:        period,
		Quantity:      qty,
		Amount:        amount,
		Currency:      strings.ToUpper(strings.TrimSpace(currency)),
	}, nil
}

// PriceInfo is a normalized D18 charge description.
type PriceInfo struct {
	ChargeID      string
	OwnerGLN      GLN
	Type          PriceType
	Category      PriceCategory
	Description   string
	Validity      Period
	VATExempt     bool
	IsTax         bool
	IsPassThrough bool
	Resolution    Resolution
}

// ExtractPriceInfo normalizes every record of a D18 document.
func ExtractPriceInfo(env *Envelope) ([]PriceInfo, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no records", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]PriceInfo, 0, len(records))
	for i, rec := range records {
		info, err := extractPriceInfoRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, *info)
	}
	return out, nil
}

func extractPriceInfoRecord(rec Fields) (*PriceInfo, error) {
	chargeID, owner, err := extractChargeKey(rec)
	if err != nil {
		return nil, err
	}
	rawType, ok := rec.String("chargeType.type", "type")
	if !ok {
		return nil, fmt.Errorf("missing charge type")
	}
	ptype, err := ParsePriceType(rawType)
	if err != nil {
		return nil, err
	}
	category := PriceCategoryOther
	if s, ok := rec.String("chargeGroup", "category"); ok {
		category, err = ParsePriceCategory(s)
		if err != nil {
			return nil, err
		}
	}
	validity, err := extractInterval(rec)
	if err != nil {
		return nil, err
	}
	info := &PriceInfo{
		ChargeID: chargeID,
		OwnerGLN: owner,
		Type:     ptype,
		Category: category,
		Validity: validity,
	}
	info.Description, _ = rec.String("chargeType.name", "description")
	info.VATExempt, _ = rec.Bool("vatExempt")
	info.IsTax, _ = rec.Bool("taxIndicator", "isTax")
	info.IsPassThrough, _ = rec.Bool("transparentInvoicing", "isPassThrough")
	if s, ok := rec.String("priceTimeFrame", "resolution"); ok {
		info.Resolution, err = ParseResolution(s)
		if err != nil {
			return nil, err
		}
	}
	return info, nil
}

// WirePricePoint is a single priced interval start.
type WirePricePoint struct {
	Timestamp time.Time
	Rate      decimal.Decimal
}

// PriceSeriesUpdate is a normalized D08 point replacement for a date range.
type PriceSeriesUpdate struct {
	ChargeID   string
	OwnerGLN   GLN
	Period     Period
	Resolution Resolution
	Points     []WirePricePoint
}

// ExtractPriceSeries normalizes every record of a D08 document.
func ExtractPriceSeries(env *Envelope) ([]PriceSeriesUpdate, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no records", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]PriceSeriesUpdate, 0, len(records))
	for i, rec := range records {
		upd, err := extractPriceSeriesRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, *upd)
	}
	return out, nil
}

func extractPriceSeriesRecord(rec Fields) (*PriceSeriesUpdate, error) {
	chargeID, owner, err := extractChargeKey(rec)
	if err != nil {
		return nil, err
	}
	periods := rec.Objects("Period", "period")
	if len(periods) == 0 {
		return nil, fmt.Errorf("missing period")
	}
	var (
		res    Resolution
		start  time.Time
		end    time.Time
		points []WirePricePoint
	)
	for _, p := range periods {
		rawRes, ok := p.String("resolution")
		if !ok {
			return nil, fmt.Errorf("period missing resolution")
		}
		pres, err := ParseResolution(rawRes)
		if err != nil {
			return nil, err
		}
		if res == "" {
			res = pres
		} else if res != pres {
			return nil, fmt.Errorf("mixed resolutions %s and %s", res, pres)
		}
		interval, err := extractInterval(p)
		if err != nil {
			return nil, err
		}
		if start.IsZero() || interval.Start.Before(start) {
			start = interval.Start
		}
		if interval.End.After(end) {
			end = interval.End
		}
		for i, pt := range p.Objects("Point", "points") {
			pos, ok := pt.Int("position")
			if !ok {
				pos = i + 1
			}
			rate, ok := pt.Decimal("price.amount", "rate", "amount")
			if !ok {
				return nil, fmt.Errorf("point %d: missing rate", pos)
			}
			points = append(points, WirePricePoint{
				Timestamp: res.ObservationTime(interval.Start, pos),
				Rate:      rate,
			})
		}
	}
	period, err := NewPeriod(start, end)
	if err != nil {
		return nil, err
	}
	return &PriceSeriesUpdate{
		ChargeID:   chargeID,
		OwnerGLN:   owner,
		Period:     period,
		Resolution: res,
		Points:     points,
	}, nil
}

// PriceLinkChange is a normalized D17 link between a charge and a point.
type PriceLinkChange struct {
	ChargeID string
	OwnerGLN GLN
	GSRN     GSRN
	Link     Period
}

// ExtractPriceLinks normalizes every record of a D17 document.
func ExtractPriceLinks(env *Envelope) ([]PriceLinkChange, error) {
	records := env.Series()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s carries no records", ErrMalformedDocument, env.DocumentName)
	}
	out := make([]PriceLinkChange, 0, len(records))
	for i, rec := range records {
		chargeID, owner, err := extractChargeKey(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		raw, ok := rec.String("marketEvaluationPoint.mRID", "meteringPointId", "gsrn")
		if !ok {
			return nil, fmt.Errorf("record %d: missing metering point identifier", i)
		}
		gsrn, err := ParseGSRN(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		link, err := extractInterval(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, PriceLinkChange{
			ChargeID: chargeID,
			OwnerGLN: owner,
			GSRN:     gsrn,
			Link:     link,
		})
	}
	return out, nil
}

func extractChargeKey(rec Fields) (string, GLN, error) {
	chargeID, ok := rec.String("chargeType.mRID", "chargeId")
	if !ok {
		return "", "", fmt.Errorf("missing charge identifier")
	}
	rawOwner, ok := rec.String("chargeTypeOwner_MarketParticipant.mRID", "ownerGln", "chargeOwner")
	if !ok {
		return "", "", fmt.Errorf("missing charge owner")
	}
	owner, err := ParseGLN(strings.TrimSpace(rawOwner))
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(chargeID), owner, nil
}
