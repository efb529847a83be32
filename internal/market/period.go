package market

import (
	"fmt"
	"time"
)

// Period is a half-open interval [Start, End). A zero End means the period
// is open-ended. Both boundaries are kept in UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period, normalizing both boundaries to UTC.
func NewPeriod(start, end time.Time) (Period, error) {
	if start.IsZero() {
		return Period{}, fmt.Errorf("period: start is required")
	}
	if !end.IsZero() && !end.After(start) {
		return Period{}, fmt.Errorf("period: end %s must be after start %s", end.UTC(), start.UTC())
	}
	p := Period{Start: start.UTC()}
	if !end.IsZero() {
		p.End = end.UTC()
	}
	return p, nil
}

// OpenEnded reports whether the period has no end.
func (p Period) OpenEnded() bool { return p.End.IsZero() }

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	return p.OpenEnded() || t.Before(p.End)
}

// Overlaps reports whether two half-open periods share at least one instant.
func (p Period) Overlaps(o Period) bool {
	if !p.OpenEnded() && !p.End.After(o.Start) {
		return false
	}
	if !o.OpenEnded() && !o.End.After(p.Start) {
		return false
	}
	return true
}

// Equal reports whether both boundaries match.
func (p Period) Equal(o Period) bool {
	if !p.Start.Equal(o.Start) {
		return false
	}
	if p.OpenEnded() || o.OpenEnded() {
		return p.OpenEnded() == o.OpenEnded()
	}
	return p.End.Equal(o.End)
}

// Duration returns End-Start. Open-ended periods have no duration.
func (p Period) Duration() time.Duration {
	if p.OpenEnded() {
		return 0
	}
	return p.End.Sub(p.Start)
}

func (p Period) String() string {
	start := p.Start.UTC().Format(time.RFC3339)
	if p.OpenEnded() {
		return fmt.Sprintf("[%s, open)", start)
	}
	return fmt.Sprintf("[%s, %s)", start, p.End.UTC().Format(time.RFC3339))
}
