package bench

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMismatch is returned when the concurrent and the sequential reductions
// disagree.
var ErrMismatch = errors.New("concurrent and sequential results differ")

// Comparison holds the results and timings of one benchmark run.
type Comparison struct {
	Elements int `json:"elements"`
	Workers  int `json:"workers"`

	AverageSalary uint64 `json:"average_salary"`
	MaxSalary     uint64 `json:"max_salary"`

	AverageConcurrent time.Duration `json:"average_concurrent_ns"`
	AverageSequential time.Duration `json:"average_sequential_ns"`
	MaxConcurrent     time.Duration `json:"max_concurrent_ns"`
	MaxSequential     time.Duration `json:"max_sequential_ns"`
}

// Run times the four reductions over vacancies and checks that the
// concurrent and the sequential versions agree.
func Run(
	ctx context.Context,
	vacancies []Vacancy,
	workers int,
) (Comparison, error) {
	c := Comparison{
		Elements: len(vacancies),
		Workers:  workers,
	}

	start := time.Now()
	avgConcurrent, err := AverageSalaryConcurrent(ctx, vacancies, workers)
	c.AverageConcurrent = time.Since(start)
	if err != nil {
		return c, err
	}

	start = time.Now()
	maxConcurrent, err := MaxSalaryConcurrent(ctx, vacancies, workers)
	c.MaxConcurrent = time.Since(start)
	if err != nil {
		return c, err
	}

	start = time.Now()
	avgSequential, err := AverageSalarySequential(vacancies)
	c.AverageSequential = time.Since(start)
	if err != nil {
		return c, err
	}

	start = time.Now()
	maxSequential := MaxSalarySequential(vacancies)
	c.MaxSequential = time.Since(start)

	if avgConcurrent != avgSequential {
		return c, fmt.Errorf("%w: average %d != %d",
			ErrMismatch, avgConcurrent, avgSequential)
	}

	if maxConcurrent != maxSequential {
		return c, fmt.Errorf("%w: max %d != %d",
			ErrMismatch, maxConcurrent, maxSequential)
	}

	c.AverageSalary = avgSequential
	c.MaxSalary = maxSequential

	return c, nil
}

// String renders the timing table.
func (c Comparison) String() string {
	return fmt.Sprintf(
		"\t\tConcurrent\tSequential\n"+
			"Max salary (ns)\t%d\t\t%d\n"+
			"Avg salary (ns)\t%d\t\t%d",
		c.MaxConcurrent.Nanoseconds(), c.MaxSequential.Nanoseconds(),
		c.AverageConcurrent.Nanoseconds(), c.AverageSequential.Nanoseconds())
}
