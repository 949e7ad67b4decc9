package bench

import (
	"context"
	"errors"
)

// ErrNoVacancies is returned when an average is asked of no vacancies.
var ErrNoVacancies = errors.New("no vacancies")

func addSalary(acc uint64, v Vacancy) uint64 {
	return acc + v.Salary
}

func maxSalary(acc uint64, v Vacancy) uint64 {
	return max(acc, v.Salary)
}

func sum(a, b uint64) uint64 {
	return a + b
}

// AverageSalaryConcurrent computes the integer average salary on a bounded
// pool of workers.
func AverageSalaryConcurrent(
	ctx context.Context,
	vacancies []Vacancy,
	workers int,
) (uint64, error) {
	if len(vacancies) == 0 {
		return 0, ErrNoVacancies
	}

	total, err := Fold(ctx, vacancies, workers, 0, addSalary, sum)
	if err != nil {
		return 0, err
	}

	return total / uint64(len(vacancies)), nil
}

// MaxSalaryConcurrent computes the highest salary on a bounded pool of
// workers. It returns 0 for no vacancies.
func MaxSalaryConcurrent(
	ctx context.Context,
	vacancies []Vacancy,
	workers int,
) (uint64, error) {
	return Fold(ctx, vacancies, workers, 0, maxSalary,
		func(a, b uint64) uint64 { return max(a, b) })
}

// AverageSalarySequential computes the integer average salary in a single
// loop.
func AverageSalarySequential(vacancies []Vacancy) (uint64, error) {
	if len(vacancies) == 0 {
		return 0, ErrNoVacancies
	}

	var total uint64
	for _, v := range vacancies {
		total = addSalary(total, v)
	}

	return total / uint64(len(vacancies)), nil
}

// MaxSalarySequential computes the highest salary in a single loop.
func MaxSalarySequential(vacancies []Vacancy) uint64 {
	var highest uint64
	for _, v := range vacancies {
		highest = maxSalary(highest, v)
	}

	return highest
}
