package worker

import (
	"fmt"
	"time"
)

// ErrKind classifies how a run failed.
type ErrKind int

const (
	// DoWork returned an error.
	ErrWork ErrKind = iota
	// DoWork panicked; the RunError carries the recovered stack.
	ErrPanic
	// The timeout budget expired before a result was produced.
	ErrTimeout
	// Admission control refused to start the work.
	ErrDenied
)

func (k ErrKind) String() string {
	switch k {
	case ErrWork:
		return "work error"
	case ErrPanic:
		return "panic"
	case ErrTimeout:
		return "timeout"
	case ErrDenied:
		return "denied"
	default:
		panic(fmt.Sprintf("Unexpected ErrKind %v", int(k)))
	}
}

// RunError is the typed failure outcome of one run: a kind, the underlying
// cause, and a diagnostic trace when one was captured.
type RunError struct {
	Kind  ErrKind
	Cause error
	// Stack holds the recovered goroutine trace for panics, "" otherwise.
	Stack string
}

func (e *RunError) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
}

func NewWorkError(cause error) *RunError {
	return &RunError{Kind: ErrWork, Cause: cause}
}

func NewPanicError(cause error, stack string) *RunError {
	return &RunError{Kind: ErrPanic, Cause: cause, Stack: stack}
}

func NewTimeoutError(budget time.Duration) *RunError {
	return &RunError{Kind: ErrTimeout, Cause: fmt.Errorf("exceeded timeout budget %v", budget)}
}

func NewDeniedError(reason string) *RunError {
	return &RunError{Kind: ErrDenied, Cause: fmt.Errorf("%s", reason)}
}
