// Package async lets an event loop spawn goroutines for concurrent work and
// have their completion callbacks run back on the loop's own goroutine.
//
// Goroutines provide no way to return a response. When a loop wants to react
// to the success or failure of work it farmed out, without taking callbacks
// on foreign goroutines, it registers the work in a Mailbox and periodically
// drains completions with ProcessMessages. Callbacks then always execute in
// the owner's context, one at a time.
package async

// A Mailbox tracks in-progress AsyncErrors and their callbacks, invoking a
// callback once its AsyncError completes.
//
// Example: a submit loop that fires jobs at a scheduler and counts outcomes
// without ever blocking on any single job:
//
//	func submitAll(defs []JobDef) (failed int) {
//	  returned := 0
//	  bx := NewMailbox()
//
//	  for _, def := range defs {
//	    go func(rsp *AsyncError, def JobDef) {
//	      rsp.SetValue(submitAndWait(def))
//	    }(bx.NewAsyncError(func(err error) {
//	      if err != nil {
//	        failed++
//	      }
//	      returned++
//	    }), def)
//	  }
//
//	  for returned < len(defs) {
//	    bx.ProcessMessages()
//	  }
//	  return failed
//	}
//
// A Mailbox is not a concurrent structure: it must only ever be accessed
// from a single goroutine. That is what guarantees the callbacks share one
// execution context.
type Mailbox struct {
	msgs []message
}

// The function type of the callback invoked when an AsyncError completes.
type AsyncErrorResponseHandler func(error)

// An AsyncError paired with its callback.
type message struct {
	Err      *AsyncError
	callback AsyncErrorResponseHandler
}

func newMessage(cb AsyncErrorResponseHandler) message {
	return message{
		Err:      newAsyncError(),
		callback: cb,
	}
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		msgs: make([]message, 0),
	}
}

func (bx *Mailbox) Count() int {
	return len(bx.msgs)
}

// Registers a new AsyncError with the supplied callback. Once the AsyncError
// completes (SetValue called), the callback is invoked on the next execution
// of ProcessMessages.
func (bx *Mailbox) NewAsyncError(cb AsyncErrorResponseHandler) *AsyncError {
	msg := newMessage(cb)
	bx.msgs = append(bx.msgs, msg)
	return msg.Err
}

// Invokes and removes the callback of every completed AsyncError in the
// mailbox. Callbacks run synchronously on the calling goroutine.
func (bx *Mailbox) ProcessMessages() {
	var unCompletedMsgs []message
	for _, msg := range bx.msgs {
		ok, err := msg.Err.TryGetValue()
		if ok {
			msg.callback(err)
		} else {
			unCompletedMsgs = append(unCompletedMsgs, msg)
		}
	}
	bx.msgs = unCompletedMsgs
}
