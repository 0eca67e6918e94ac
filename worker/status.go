package worker

import (
	"fmt"

	"github.com/gantrylabs/gantry/monitor"
)

// RunState describes where a run is in its lifecycle.
type RunState int

const (
	// An unambiguous 0-value.
	UNKNOWN RunState = iota
	// Accepted and waiting to be dispatched.
	PENDING
	// Inside the execution envelope.
	RUNNING

	// States below are end states.
	// A run in an end state will not change its state.

	// DoWork returned a result.
	COMPLETE
	// DoWork returned an error or panicked.
	FAILED
	// Cancellation was requested before a result was delivered.
	ABORTED
	// The timeout budget expired before a result was delivered.
	TIMEDOUT
	// Admission control refused to start the work.
	DENIED
)

func (s RunState) IsDone() bool {
	return s == COMPLETE || s == FAILED || s == ABORTED || s == TIMEDOUT || s == DENIED
}

func (s RunState) String() string {
	switch s {
	case UNKNOWN:
		return "UNKNOWN"
	case PENDING:
		return "PENDING"
	case RUNNING:
		return "RUNNING"
	case COMPLETE:
		return "COMPLETE"
	case FAILED:
		return "FAILED"
	case ABORTED:
		return "ABORTED"
	case TIMEDOUT:
		return "TIMEDOUT"
	case DENIED:
		return "DENIED"
	default:
		panic(fmt.Sprintf("Unexpected RunState %v", int(s)))
	}
}

// RunStatus is one point-in-time report for a run.
type RunStatus struct {
	JobID string
	State RunState

	// Only valid if State == COMPLETE
	Result interface{}

	// Only valid if State == FAILED, TIMEDOUT or DENIED
	Err *RunError

	// Latest progress report, nil before the first
	Progress *Progress

	// Latest status or resource-warning message
	Message string

	// Type of the job as declared at submission
	JobType monitor.JobType

	// Finished marks the last update for a run: the terminal state has been
	// reached and cleanup has run. It is the single reliable "fully done"
	// signal.
	Finished bool
}

func (st RunStatus) String() string {
	s := fmt.Sprintf("RunStatus -- JobID: %s # State: %v", st.JobID, st.State)
	if st.State == COMPLETE {
		s += fmt.Sprintf(" # Result: %v", st.Result)
	}
	if st.Err != nil {
		s += fmt.Sprintf(" # Err: %v", st.Err)
	}
	if st.Progress != nil {
		s += fmt.Sprintf(" # Progress: %d/%d %s", st.Progress.Current, st.Progress.Total, st.Progress.Message)
	}
	if st.Message != "" {
		s += fmt.Sprintf(" # Message: %s", st.Message)
	}
	if st.Finished {
		s += " # Finished"
	}
	return s
}

// Helper functions to create RunStatus

func PendingStatus(jobID string) (st RunStatus) {
	st.JobID = jobID
	st.State = PENDING
	return st
}

func RunningStatus(jobID string) (st RunStatus) {
	st.JobID = jobID
	st.State = RUNNING
	return st
}

func CompleteStatus(jobID string, result interface{}) (st RunStatus) {
	st.JobID = jobID
	st.State = COMPLETE
	st.Result = result
	return st
}

func ErrorStatus(jobID string, err *RunError) (st RunStatus) {
	st.JobID = jobID
	st.State = FAILED
	st.Err = err
	return st
}

func AbortStatus(jobID string) (st RunStatus) {
	st.JobID = jobID
	st.State = ABORTED
	return st
}

func TimeoutStatus(jobID string, err *RunError) (st RunStatus) {
	st.JobID = jobID
	st.State = TIMEDOUT
	st.Err = err
	return st
}

func DeniedStatus(jobID string, err *RunError) (st RunStatus) {
	st.JobID = jobID
	st.State = DENIED
	st.Err = err
	return st
}
