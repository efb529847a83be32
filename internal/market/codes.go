package market

import (
	"fmt"
	"strings"
)

// MeteringPointType is the direction of the metered flow.
type MeteringPointType string

const (
	MeteringPointConsumption MeteringPointType = "Consumption"
	MeteringPointProduction  MeteringPointType = "Production"
	MeteringPointExchange    MeteringPointType = "Exchange"
)

// ParseMeteringPointType accepts both the wire code and the plain name.
func ParseMeteringPointType(s string) (MeteringPointType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "e17", "consumption":
		return MeteringPointConsumption, nil
	case "e18", "production":
		return MeteringPointProduction, nil
	case "e20", "exchange":
		return MeteringPointExchange, nil
	}
	return "", fmt.Errorf("unknown metering point type %q", s)
}

// MeteringPointCategory distinguishes physical, virtual and child points.
type MeteringPointCategory string

const (
	CategoryPhysical MeteringPointCategory = "Physical"
	CategoryVirtual  MeteringPointCategory = "Virtual"
	CategoryChild    MeteringPointCategory = "Child"
)

// ParseMeteringPointCategory accepts both the wire code and the plain name.
func ParseMeteringPointCategory(s string) (MeteringPointCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d01", "physical":
		return CategoryPhysical, nil
	case "d02", "virtual":
		return CategoryVirtual, nil
	case "d99", "child":
		return CategoryChild, nil
	}
	return "", fmt.Errorf("unknown metering point category %q", s)
}

// SettlementMethod is how a metering point is settled.
type SettlementMethod string

const (
	SettlementHourly   SettlementMethod = "Hourly"
	SettlementFlex     SettlementMethod = "Flex"
	SettlementProfiled SettlementMethod = "Profiled"
)

// ParseSettlementMethod accepts both the wire code and the plain name.
func ParseSettlementMethod(s string) (SettlementMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "e02", "hourly":
		return SettlementHourly, nil
	case "d01", "flex":
		return SettlementFlex, nil
	case "e01", "profiled":
		return SettlementProfiled, nil
	}
	return "", fmt.Errorf("unknown settlement method %q", s)
}

// ConnectionState is the physical status of a metering point.
type ConnectionState string

const (
	ConnectionNew          ConnectionState = "New"
	ConnectionConnected    ConnectionState = "Connected"
	ConnectionDisconnected ConnectionState = "Disconnected"
)

// ParseConnectionState accepts both the wire code and the plain name.
func ParseConnectionState(s string) (ConnectionState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d03", "new":
		return ConnectionNew, nil
	case "e22", "connected":
		return ConnectionConnected, nil
	case "e23", "disconnected":
		return ConnectionDisconnected, nil
	}
	return "", fmt.Errorf("unknown connection state %q", s)
}

// PriceType classifies a charge.
type PriceType string

const (
	PriceTypeTariff       PriceType = "Tariff"
	PriceTypeSubscription PriceType = "Subscription"
	PriceTypeFee          PriceType = "Fee"
)

// ParsePriceType accepts both the wire charge-type code and the plain name.
func ParsePriceType(s string) (PriceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d03", "tariff":
		return PriceTypeTariff, nil
	case "d01", "subscription":
		return PriceTypeSubscription, nil
	case "d02", "fee":
		return PriceTypeFee, nil
	}
	return "", fmt.Errorf("unknown price type %q", s)
}

// PriceCategory groups charges for validation and settlement lines.
type PriceCategory string

const (
	PriceCategoryNetTariff    PriceCategory = "NetTariff"
	PriceCategorySystemTariff PriceCategory = "SystemTariff"
	PriceCategoryTransmission PriceCategory = "Transmission"
	PriceCategoryTax          PriceCategory = "Tax"
	PriceCategorySpot         PriceCategory = "Spot"
	PriceCategoryMargin       PriceCategory = "Margin"
	PriceCategoryOther        PriceCategory = "Other"
)

// ParsePriceCategory accepts the plain category names used on the wire.
func ParsePriceCategory(s string) (PriceCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nettariff", "net", "grid":
		return PriceCategoryNetTariff, nil
	case "systemtariff", "system":
		return PriceCategorySystemTariff, nil
	case "transmission", "transmissiontariff":
		return PriceCategoryTransmission, nil
	case "tax", "electricitytax":
		return PriceCategoryTax, nil
	case "spot":
		return PriceCategorySpot, nil
	case "margin":
		return PriceCategoryMargin, nil
	case "other":
		return PriceCategoryOther, nil
	}
	return "", fmt.Errorf("unknown price category %q", s)
}

// PricingModel is how the supplier prices energy: wholesale spot plus a
// margin, or the margin as the full energy price.
type PricingModel string

const (
	PricingSpotAddon PricingModel = "SpotAddon"
	PricingFixed     PricingModel = "Fixed"
)

// ParsePricingModel validates a stored pricing model.
func ParsePricingModel(s string) (PricingModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spotaddon", "spot_addon":
		return PricingSpotAddon, nil
	case "fixed":
		return PricingFixed, nil
	}
	return "", fmt.Errorf("unknown pricing model %q", s)
}

// PriceArea is a wholesale bidding zone.
type PriceArea string

const (
	PriceAreaDK1 PriceArea = "DK1"
	PriceAreaDK2 PriceArea = "DK2"
)

// ParsePriceArea validates a bidding zone code.
func ParsePriceArea(s string) (PriceArea, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DK1":
		return PriceAreaDK1, nil
	case "DK2":
		return PriceAreaDK2, nil
	}
	return "", fmt.Errorf("unknown price area %q", s)
}

func (a PriceArea) String() string { return string(a) }
