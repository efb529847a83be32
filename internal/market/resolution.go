package market

import (
	"fmt"
	"strings"
	"time"
)

// Resolution is the tick size of a time series or a time-varying price,
// carried on the wire as an ISO 8601 duration code.
type Resolution string

const (
	ResolutionQuarterHour Resolution = "PT15M"
	ResolutionHour        Resolution = "PT1H"
	ResolutionDay         Resolution = "P1D"
	ResolutionMonth       Resolution = "P1M"
)

// ParseResolution accepts the duration codes used on the wire.
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(strings.ToUpper(strings.TrimSpace(s))); r {
	case ResolutionQuarterHour, ResolutionHour, ResolutionDay, ResolutionMonth:
		return r, nil
	}
	return "", fmt.Errorf("unsupported resolution %q", s)
}

// Step returns the fixed tick duration. Months have no fixed step and
// return zero; callers treat such prices as periodic, not time-varying.
func (r Resolution) Step() time.Duration {
	switch r {
	case ResolutionQuarterHour:
		return 15 * time.Minute
	case ResolutionHour:
		return time.Hour
	case ResolutionDay:
		return 24 * time.Hour
	}
	return 0
}

func (r Resolution) String() string { return string(r) }

// ObservationTime derives the interval start of the point at the given
// one-based wire position.
func (r Resolution) ObservationTime(periodStart time.Time, position int) time.Time {
	return periodStart.UTC().Add(time.Duration(position-1) * r.Step())
}
