// Package timing provides the notion of time used by the simulation workers.
//
// The simulation measures every interval in abstract time units. A Clock maps
// those units onto real time, so that a run with a one-millisecond unit and a
// run with a one-microsecond unit produce the same statistics at different
// speeds.
package timing

import (
	"context"
	"time"
)

// DefaultUnit is the length of one time unit unless configured otherwise.
const DefaultUnit = time.Millisecond

// TimeTeller can be used to get the current time, in time units since the
// start of the simulation.
type TimeTeller interface {
	Now() float64
}

// A Sleeper blocks the calling worker for a number of time units.
type Sleeper interface {
	// Sleep blocks for units time units. It returns the context error if the
	// context is done before the time elapses.
	Sleep(ctx context.Context, units int) error
}

// A Clock can both tell the time and put a worker to sleep.
type Clock interface {
	TimeTeller
	Sleeper
}

// WallClock is a Clock backed by the real time.
type WallClock struct {
	unit  time.Duration
	start time.Time
}

// NewWallClock creates a WallClock whose time unit lasts unit. The clock
// starts counting at creation.
func NewWallClock(unit time.Duration) *WallClock {
	if unit <= 0 {
		panic("time unit must be positive")
	}

	return &WallClock{
		unit:  unit,
		start: time.Now(),
	}
}

// Unit returns the real duration of one time unit.
func (c *WallClock) Unit() time.Duration {
	return c.unit
}

// Now returns the time units elapsed since the clock was created.
func (c *WallClock) Now() float64 {
	return float64(time.Since(c.start)) / float64(c.unit)
}

// Sleep blocks for units time units or until ctx is done.
func (c *WallClock) Sleep(ctx context.Context, units int) error {
	if units < 0 {
		panic("cannot sleep for a negative duration")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if units == 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(units) * c.unit)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
