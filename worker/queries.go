package worker

import (
	"fmt"
	"math"
	"time"
)

// queries.go is how to read RunStatus'es

// StateMask describes a set of RunStates as a bitmask.
type StateMask uint64

// Useful StateMask constants
const (
	UNKNOWN_MASK  StateMask = 1 << uint(UNKNOWN)
	PENDING_MASK  StateMask = 1 << uint(PENDING)
	RUNNING_MASK  StateMask = 1 << uint(RUNNING)
	COMPLETE_MASK StateMask = 1 << uint(COMPLETE)
	FAILED_MASK   StateMask = 1 << uint(FAILED)
	ABORTED_MASK  StateMask = 1 << uint(ABORTED)
	TIMEDOUT_MASK StateMask = 1 << uint(TIMEDOUT)
	DENIED_MASK   StateMask = 1 << uint(DENIED)
	DONE_MASK     StateMask = COMPLETE_MASK | FAILED_MASK | ABORTED_MASK | TIMEDOUT_MASK | DENIED_MASK

	ALL_MASK = StateMask(math.MaxUint64)
)

// MaskForState returns a StateMask that matches exactly the given states.
func MaskForState(state ...RunState) StateMask {
	var mask StateMask
	for _, s := range state {
		mask = mask | (1 << uint(s))
	}
	return mask
}

func (m StateMask) Matches(state RunState) bool {
	return MaskForState(state)&m != 0
}

// Query describes a query for RunStatuses.
// Runs and States are and'ed: a RunStatus matches a Query if its JobID is
// in q.Runs (or q.AllRuns) and its state is in q.States.
type Query struct {
	Runs    []string  // Job IDs to query for
	AllRuns bool      // Whether to match all jobs
	States  StateMask // What States to match
}

// Matches checks if st matches q
func (q Query) Matches(st RunStatus) bool {
	if !q.States.Matches(st.State) {
		return false
	}
	if q.AllRuns {
		return true
	}
	for _, id := range q.Runs {
		if id == st.JobID {
			return true
		}
	}
	return false
}

// Wait describes how long a Query may block. A zero Timeout returns
// immediately, no blocking.
type Wait struct {
	Timeout time.Duration
}

func WaitForever() Wait {
	return Wait{Timeout: time.Duration(math.MaxInt64)}
}

// StatusQuerier allows reading statuses by Query'ing.
type StatusQuerier interface {
	// Query returns all RunStatus'es matching q, waiting as described by w
	Query(q Query, w Wait) ([]RunStatus, error)

	// QueryNow returns all RunStatus'es matching q in their current state
	QueryNow(q Query) ([]RunStatus, error)
}

// Convenience methods for common queries in terms of the more general
// Query interface.

// StatusNow returns the current status of id from q.
func StatusNow(q StatusQuerier, id string) (RunStatus, error) {
	statuses, err := q.QueryNow(Query{Runs: []string{id}, States: ALL_MASK})
	return SingleStatus(statuses, err)
}

// FinalStatus blocks until id reaches a terminal state.
func FinalStatus(q StatusQuerier, id string) (RunStatus, error) {
	statuses, err := q.Query(Query{Runs: []string{id}, States: DONE_MASK}, WaitForever())
	return SingleStatus(statuses, err)
}

// WaitForState blocks until id reaches the expected state.
func WaitForState(q StatusQuerier, id string, expected RunState) (RunStatus, error) {
	statuses, err := q.Query(Query{Runs: []string{id}, States: MaskForState(expected)}, WaitForever())
	return SingleStatus(statuses, err)
}

func SingleStatus(statuses []RunStatus, err error) (RunStatus, error) {
	if err != nil {
		return RunStatus{}, err
	}
	if len(statuses) != 1 {
		return RunStatus{}, fmt.Errorf("expected exactly 1 status, got %d: %v", len(statuses), statuses)
	}
	return statuses[0], nil
}
