// Package clock abstracts wall time so workers and services can be tested
// against a frozen clock.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time in UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns the wall clock.
func NewSystemClock() Clock { return systemClock{} }

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

// NewFixedClock returns a clock pinned to at, for tests.
func NewFixedClock(at time.Time) Clock { return fixedClock{at: at.UTC()} }

// Module provides the wall clock.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
