package scheduler

import (
	"github.com/gantrylabs/gantry/sched"
)

// Listener observes scheduler-level job transitions. Callbacks run on the
// scheduler's owner goroutine and must return quickly without blocking;
// listeners that need to do real work should hand it off (see async.Runner).
//
// Events are edge-triggered. Every job produces exactly one of
// JobCompleted, JobFailed, JobCancelled or JobDenied, except that a
// cancellation racing the job's own finish may report JobCancelled
// alongside the outcome event.
type Listener interface {
	// JobQueued fires when a submission is accepted into the queue.
	JobQueued(id string)
	// JobStarted fires when a job is handed to the worker pool.
	JobStarted(id string)
	// JobCompleted fires when a job's work returns a result.
	JobCompleted(id string)
	// JobFailed fires when a job's work errors, panics or times out.
	JobFailed(id string, err error)
	// JobCancelled fires when a job is cancelled, whether queued or running.
	JobCancelled(id string)
	// JobDenied fires when admission control refuses a job terminally.
	JobDenied(id string, reason string)
	// JobDemoted fires when a denied job is requeued one priority lower.
	JobDemoted(id string, from, to sched.Priority)
	// QueueSizeChanged fires when the number of queued jobs changes.
	QueueSizeChanged(n int)
}

// NopListener ignores every event.
type NopListener struct{}

func (l NopListener) JobQueued(id string)                           {}
func (l NopListener) JobStarted(id string)                          {}
func (l NopListener) JobCompleted(id string)                        {}
func (l NopListener) JobFailed(id string, err error)                {}
func (l NopListener) JobCancelled(id string)                        {}
func (l NopListener) JobDenied(id string, reason string)            {}
func (l NopListener) JobDemoted(id string, from, to sched.Priority) {}
func (l NopListener) QueueSizeChanged(n int)                        {}

// MultiListener fans each event out to its listeners in order.
type MultiListener []Listener

func (m MultiListener) JobQueued(id string) {
	for _, l := range m {
		l.JobQueued(id)
	}
}

func (m MultiListener) JobStarted(id string) {
	for _, l := range m {
		l.JobStarted(id)
	}
}

func (m MultiListener) JobCompleted(id string) {
	for _, l := range m {
		l.JobCompleted(id)
	}
}

func (m MultiListener) JobFailed(id string, err error) {
	for _, l := range m {
		l.JobFailed(id, err)
	}
}

func (m MultiListener) JobCancelled(id string) {
	for _, l := range m {
		l.JobCancelled(id)
	}
}

func (m MultiListener) JobDenied(id string, reason string) {
	for _, l := range m {
		l.JobDenied(id, reason)
	}
}

func (m MultiListener) JobDemoted(id string, from, to sched.Priority) {
	for _, l := range m {
		l.JobDemoted(id, from, to)
	}
}

func (m MultiListener) QueueSizeChanged(n int) {
	for _, l := range m {
		l.QueueSizeChanged(n)
	}
}
