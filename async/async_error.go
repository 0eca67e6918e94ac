package async

// AsyncError is an eventual error value, similar to a promise that resolves
// to an error. SetValue supplies the value and marks it completed; the value
// is then readable through TryGetValue.
type AsyncError struct {
	errCh     chan error
	val       error
	completed bool
}

func newAsyncError() *AsyncError {
	return &AsyncError{
		errCh: make(chan error, 1),
	}
}

// Sets the value and marks this AsyncError completed. May be called from any
// goroutine, but only once per instance; a second call panics.
func (e *AsyncError) SetValue(err error) {
	e.errCh <- err
	close(e.errCh)
}

// Returns whether this AsyncError has completed, and its value if so.
// A pending AsyncError returns (false, nil). Must only be called from the
// goroutine that owns the enclosing Mailbox.
func (e *AsyncError) TryGetValue() (bool, error) {
	if e.completed {
		return true, e.val
	}
	select {
	case err := <-e.errCh:
		e.val = err
		e.completed = true
		return true, err
	default:
		return false, nil
	}
}
