package sched

import "github.com/pkg/errors"

const QueueFullMsg = "No resources available. Please try later."

// ErrQueueFull rejects a submission when queued plus active jobs have
// reached the configured ceiling. Callers may retry later; the scheduler
// never queues beyond its bound.
var ErrQueueFull = errors.New(QueueFullMsg)

// ErrShuttingDown rejects submissions once Shutdown has begun.
var ErrShuttingDown = errors.New("scheduler is shutting down")
