package async

import (
	"errors"
	"testing"
)

func Test_AsyncErrorNotCompleted(t *testing.T) {
	err := newAsyncError()
	ok, _ := err.TryGetValue()
	if ok {
		t.Error("Expected TryGetValue to return false before SetValue")
	}
}

func Test_AsyncErrorCompleted(t *testing.T) {
	asyncErr := newAsyncError()
	asyncErr.SetValue(errors.New("Test Error!"))

	ok, err := asyncErr.TryGetValue()
	if !ok {
		t.Error("Expected TryGetValue to return true after SetValue")
	}
	if err == nil || err.Error() != "Test Error!" {
		t.Error("Expected `Test Error!`, got: ", err)
	}

	// value sticks across repeated queries
	ok, err = asyncErr.TryGetValue()
	if !ok {
		t.Error("Expected TryGetValue to keep returning true")
	}
	if err == nil || err.Error() != "Test Error!" {
		t.Error("Expected `Test Error!`, got: ", err)
	}
}

func Test_AsyncErrorCompletedWithNil(t *testing.T) {
	asyncErr := newAsyncError()
	asyncErr.SetValue(nil)

	ok, err := asyncErr.TryGetValue()
	if !ok {
		t.Error("Expected TryGetValue to return true after SetValue")
	}
	if err != nil {
		t.Error("Expected nil error, got: ", err)
	}
}
