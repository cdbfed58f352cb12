package trader

import (
	"fmt"
	"runtime/debug"

	"trader/pkg/exception"
)

// InitError is returned when one-time setup fails. It is always fatal.
type InitError struct {
	Capability string
	Err        error
}

func (e *InitError) Error() string {
	if e.Capability == "" {
		return fmt.Sprintf("initialize trader: %v", e.Err)
	}
	return fmt.Sprintf("initialize %s: %v", e.Capability, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// StepError is returned when a trading cycle fails. It is always fatal.
type StepError struct {
	Cycle uint64
	Stage string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("trading cycle %d, %s: %v", e.Cycle, e.Stage, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError is a panic recovered from capability code, with the stack of
// the goroutine that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError must be called from the deferred recover so the stack
// still points at the panic site.
func NewPanicError(value any) *PanicError {
	return &PanicError{Value: value, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", exception.ErrTraderPanic, e.Value)
}

func (e *PanicError) Is(target error) bool {
	return target == exception.ErrTraderPanic
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
