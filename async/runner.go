package async

// A Runner spawns goroutines to run functions and associates callbacks with
// them, building on Mailbox so callers don't juggle AsyncErrors directly.
//
// The below example is a storeValue function, which tries to store a value
// durably. A value is considered durably stored if it successfully writes to
// two of three replicas. We want to write to all replicas in parallel and
// return as soon as two writes succeed. We return an error if < 2 writes
// succeed.
//
//	func storeValue(num int) error {
//	  successfulWrites := 0
//	  returnedWrites := 0
//
//	  runner := NewRunner()
//
//	  writeCb := func(err error) {
//	    if err == nil {
//	      successfulWrites++
//	    }
//	    returnedWrites++
//	  }
//
//	  runner.RunAsync(func() error { return write(num, "replicaOne") }, writeCb)
//	  runner.RunAsync(func() error { return write(num, "replicaTwo") }, writeCb)
//	  runner.RunAsync(func() error { return write(num, "replicaThree") }, writeCb)
//
//	  for successfulWrites < 2 && returnedWrites < 3 {
//	    runner.ProcessMessages()
//	  }
//
//	  if successfulWrites >= 2 {
//	    return nil
//	  } else {
//	    return errors.New("could not durably store value")
//	  }
//	}
//
//	// a function which makes a call to a durable register
//	// which is accessed via the network
//	func write(num int, address string) error { ... }
//
// Like Mailbox, a Runner must only be accessed from a single goroutine.
type Runner struct {
	bx *Mailbox
}

func NewRunner() Runner {
	return Runner{
		bx: NewMailbox(),
	}
}

// The number of functions started via RunAsync whose callbacks have not yet
// been invoked.
func (r *Runner) NumRunning() int {
	return r.bx.Count()
}

// RunAsync runs f on a new goroutine. The callback cb is invoked with f's
// return value on a subsequent call to ProcessMessages, after f completes.
func (r *Runner) RunAsync(f func() error, cb AsyncErrorResponseHandler) {
	asyncErr := r.bx.NewAsyncError(cb)
	go func(rsp *AsyncError) {
		err := f()
		rsp.SetValue(err)
	}(asyncErr)
}

// Invokes all callbacks of completed functions. Callbacks are run
// synchronously by the calling goroutine.
func (r *Runner) ProcessMessages() {
	r.bx.ProcessMessages()
}
