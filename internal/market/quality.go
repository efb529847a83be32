package market

import (
	"fmt"
	"strings"
)

// Quality grades a single observation.
type Quality string

const (
	QualityMeasured   Quality = "Measured"
	QualityEstimated  Quality = "Estimated"
	QualityRevised    Quality = "Revised"
	QualityIncomplete Quality = "Incomplete"
)

// QualityFromWire maps CIM quality codes onto domain qualities. A01 and A03
// are both accepted measured values.
func QualityFromWire(code string) (Quality, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "A01", "A03":
		return QualityMeasured, nil
	case "A02":
		return QualityEstimated, nil
	case "A05":
		return QualityRevised, nil
	case "QM":
		return QualityIncomplete, nil
	}
	return "", fmt.Errorf("unknown quality code %q", code)
}
