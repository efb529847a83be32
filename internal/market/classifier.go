package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnclassified flags a document matching neither the name table nor the
// process-type table.
var ErrUnclassified = errors.New("unclassifiable market document")

// Classification is the routing decision for an inbound document.
type Classification struct {
	Process        BusinessProcess
	DocumentType   string
	BusinessReason string
}

// documentAnchors map root-name fragments to processes. Order matters: the
// aggregated anchor must win over the plain measure-data anchor.
var documentAnchors = []struct {
	anchor  string
	process BusinessProcess
}{
	{"AggregatedMeasureData", ProcessAggregatedData},
	{"MeasureData", ProcessMeteredData},
	{"ChangeOfSupplier", ProcessSupplyChange},
	{"EndOfSupply", ProcessEndOfSupply},
	{"MeteringPoint", ProcessMasterData},
	{"WholesaleSettlement", ProcessWholesale},
	{"WholesaleServices", ProcessWholesale},
	{"PriceList", ProcessPriceInfo},
	{"ChargeInformation", ProcessPriceInfo},
	{"ChargeLinks", ProcessPriceLink},
}

var documentPrefixes = []string{"Confirm", "Reject", "Notify", "Request", "Acknowledge"}

// Classify resolves the business process for an envelope. Tier one
// inspects the root document name, tier two falls back to the inner
// process type code.
func Classify(env *Envelope) (Classification, error) {
	c := Classification{
		DocumentType:   env.DocumentName,
		BusinessReason: env.BusinessReason(),
	}
	if hasKnownPrefix(env.DocumentName) {
		for _, a := range documentAnchors {
			if strings.Contains(env.DocumentName, a.anchor) {
				c.Process = a.process
				return c, nil
			}
		}
	}
	if code, ok := env.ProcessType(); ok {
		if p, found := processTypeTable[strings.ToUpper(strings.TrimSpace(code))]; found {
			c.Process = p
			return c, nil
		}
	}
	return c, fmt.Errorf("%w: %s", ErrUnclassified, env.DocumentName)
}

func hasKnownPrefix(name string) bool {
	for _, p := range documentPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
