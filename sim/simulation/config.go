package simulation

import (
	"errors"
	"fmt"

	"github.com/sarchlab/chainsim/sim/queueing"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the parameters of one simulation run. Intervals and service
// times are in time units and are drawn from half-open ranges.
type Config struct {
	BufferSize         int
	MinArrivalInterval int
	MaxArrivalInterval int
	MinServiceTime     int
	MaxServiceTime     int
	ProcessCount       int
	DrainOrder         queueing.DrainOrder
	ArrivalPolicy      queueing.ArrivalPolicy
}

// DefaultConfig returns the parameters of the classic run: chains of four,
// two hundred processes, intervals and service times in [2, 5). An empty
// ArrivalPolicy means ArrivalTail.
func DefaultConfig() Config {
	return Config{
		BufferSize:         4,
		MinArrivalInterval: 2,
		MaxArrivalInterval: 5,
		MinServiceTime:     2,
		MaxServiceTime:     5,
		ProcessCount:       200,
		DrainOrder:         queueing.FIFO,
		ArrivalPolicy:      queueing.ArrivalTail,
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive, got %d",
			ErrInvalidConfig, c.BufferSize)
	}

	if c.ProcessCount <= 0 {
		return fmt.Errorf("%w: process count must be positive, got %d",
			ErrInvalidConfig, c.ProcessCount)
	}

	if err := validateRange(
		"arrival interval", c.MinArrivalInterval, c.MaxArrivalInterval,
	); err != nil {
		return err
	}

	if err := validateRange(
		"service time", c.MinServiceTime, c.MaxServiceTime,
	); err != nil {
		return err
	}

	if !c.DrainOrder.Valid() {
		return fmt.Errorf("%w: unknown drain order %q",
			ErrInvalidConfig, c.DrainOrder)
	}

	if c.ArrivalPolicy != "" && !c.ArrivalPolicy.Valid() {
		return fmt.Errorf("%w: unknown arrival policy %q",
			ErrInvalidConfig, c.ArrivalPolicy)
	}

	return nil
}

func validateRange(what string, lo, hi int) error {
	if lo < 0 {
		return fmt.Errorf("%w: minimum %s must not be negative, got %d",
			ErrInvalidConfig, what, lo)
	}

	if lo >= hi {
		return fmt.Errorf("%w: %s range [%d, %d) is empty",
			ErrInvalidConfig, what, lo, hi)
	}

	return nil
}
