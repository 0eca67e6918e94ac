// Package sched provides definitions for Gantry jobs.
package sched

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/worker"
)

// Priority orders jobs for dispatch: a lower number always dispatches
// before a higher one, and equal priorities dispatch in arrival order.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
)

// NumPriorities is the number of distinct priority levels.
const NumPriorities = 4

func (p Priority) String() string {
	switch p {
	case Critical:
		return "CRITICAL"
	case High:
		return "HIGH"
	case Normal:
		return "NORMAL"
	case Low:
		return "LOW"
	default:
		panic(fmt.Sprintf("Unexpected Priority %v", int(p)))
	}
}

// Valid reports whether p is one of the defined priority levels.
func (p Priority) Valid() bool {
	return p >= Critical && p <= Low
}

// Demote returns the next less-urgent priority. Low demotes to itself:
// demotion delays a job, it never discards one.
func (p Priority) Demote() Priority {
	if p >= Low {
		return Low
	}
	return p + 1
}

// JobDefinition is the definition the client submits.
type JobDefinition struct {
	// Worker runs the job. The scheduler owns it exclusively from
	// submission until the job's finished update.
	Worker worker.Worker

	// Type selects the admission floor the job is checked against.
	// Empty means monitor.JobTypeDefault.
	Type monitor.JobType

	// Priority orders dispatch. Values outside the defined range are
	// rejected at submission, not clamped silently.
	Priority Priority

	// Timeout is the run's time budget, 0 for unlimited.
	Timeout time.Duration

	// OnComplete and OnError are optional terminal callbacks, invoked
	// from the scheduler's owner goroutine. They must not block.
	OnComplete func(result interface{})
	OnError    func(err error)
}

// Validate checks def for the mistakes a caller can make.
func (def *JobDefinition) Validate() error {
	if def.Worker == nil {
		return errors.New("job definition has no worker")
	}
	if !def.Priority.Valid() {
		return errors.Errorf("invalid priority %d", def.Priority)
	}
	if def.Timeout < 0 {
		return errors.Errorf("negative timeout %v", def.Timeout)
	}
	return nil
}

// Job is a job the scheduler can run
type Job struct {
	ID        string
	Def       JobDefinition
	CreatedAt time.Time
}

// NewJob assigns def a fresh unique id and an arrival timestamp.
func NewJob(def JobDefinition) *Job {
	return &Job{ID: GenerateJobID(), Def: def, CreatedAt: time.Now()}
}
