package simulation

import (
	"errors"
	"fmt"
)

// Op names the operation a worker was performing.
type Op string

// The operations a worker can be performing when it fails.
const (
	OpGenerate Op = "generate"
	OpInsert   Op = "insert"
	OpExtract  Op = "extract"
	OpService  Op = "service"
)

// OpError reports a fatal failure of a worker. Every OpError ends the run.
type OpError struct {
	Worker string
	Op     Op
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Worker, e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// ErrPanic wraps values recovered from panics that are not errors.
var ErrPanic = errors.New("panic")

func recoveredError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}

	return fmt.Errorf("%w: %v", ErrPanic, r)
}
