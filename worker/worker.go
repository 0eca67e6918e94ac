// Package worker defines the unit-of-work contract: the Worker interface,
// the Run cancellation token handed into DoWork, and the RunStatus reports
// that come out of an execution. The envelope that drives a Worker through
// its lifecycle lives in worker/workers.
package worker

//go:generate mockgen -source=worker.go -package=worker -destination=worker_mock.go

// Worker is one runnable, cancellable unit of background work.
//
// A Worker is exclusively owned by the job it was submitted with: it runs
// exactly once and is never shared or reused. A retry is a new Worker.
type Worker interface {
	// DoWork performs the work and returns its result or error. It runs on
	// its own goroutine, never the caller's. Long-running implementations
	// must poll run.Cancelled (or select on run.Done) and return early when
	// cancellation is requested; cancellation is advisory, never
	// preemptive.
	DoWork(run *Run) (interface{}, error)

	// Cleanup releases whatever DoWork acquired. It is invoked exactly
	// once after DoWork in every outcome, including cancellation, denial
	// and panics. Its failures are logged and never mask the run's primary
	// outcome.
	Cleanup() error
}
