package workers

//go:generate mockgen -source=invoker.go -package=workers -destination=invoker_mock.go

import (
	"fmt"
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/common/stats"
	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/worker"
)

// invoker.go: Invoker runs a single job through the execution envelope.

// Admitter answers whether a job of the given type may start right now.
// On deny, reason names the resource that blocked it. On allow, reason
// carries a warning when usage is elevated, "" otherwise.
// monitor.Monitor is the production Admitter.
type Admitter interface {
	CanStartJob(t monitor.JobType) (ok bool, reason string)
}

// NewInvoker creates an Invoker that gates every run through adm.
func NewInvoker(adm Admitter, stat stats.StatsReceiver) *Invoker {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &Invoker{adm: adm, stat: stat.Scope("worker")}
}

// Invoker runs a single Worker start to finish. It knows nothing about
// queues or other runs; ordering is the scheduler's problem.
type Invoker struct {
	adm  Admitter
	stat stats.StatsReceiver
}

// Run runs w once, returning channels to control and observe the run.
//
// Updates flow to updateCh as the run progresses. The first update is
// RUNNING; the last is a terminal state with Finished set, after which
// updateCh closes. Callers must drain updateCh until it closes.
//
// A timeout of 0 means no deadline. Signaling abortCh (at most once; the
// owner may close it instead) asks the work to stop. Stopping is
// cooperative: the work may take arbitrarily long to notice its token, and
// cleanup and the finished update wait for it.
func (inv *Invoker) Run(w worker.Worker, run *worker.Run, jobType monitor.JobType, timeout time.Duration) (abortCh chan<- struct{}, updateCh <-chan worker.RunStatus) {
	abortChFull := make(chan struct{})
	updateChFull := make(chan worker.RunStatus)
	go inv.run(w, run, jobType, timeout, abortChFull, updateChFull)
	return abortChFull, updateChFull
}

// Abort tears down a run that will never be dispatched (cancelled while
// queued, or drained at shutdown). The lifecycle contract still holds: an
// ABORTED terminal status, cleanup exactly once, then the finished marking.
func (inv *Invoker) Abort(w worker.Worker, run *worker.Run, jobType monitor.JobType) <-chan worker.RunStatus {
	updateCh := make(chan worker.RunStatus)
	go func() {
		run.Cancel()
		r := worker.AbortStatus(run.JobID())
		r.JobType = jobType
		inv.finish(w, run, r, updateCh)
	}()
	return updateCh
}

// run drives the envelope in a fixed order: running update, cancellation
// check, admission check, work, terminal update, cleanup, finished update.
// Cleanup runs exactly once no matter how the work ends, and the finished
// update is always the last thing sent.
func (inv *Invoker) run(w worker.Worker, run *worker.Run, jobType monitor.JobType, timeout time.Duration, abortCh chan struct{}, updateCh chan worker.RunStatus) {
	jobID := run.JobID()
	defer inv.stat.Latency(stats.WorkerRunLatency_ms).Time().Stop()
	log.Infof("Invoking job %s (type %s, timeout %v)", jobID, jobType, timeout)

	st := worker.RunningStatus(jobID)
	st.JobType = jobType
	updateCh <- st

	// Cancelled while queued: don't spend an admission check on it.
	if run.Cancelled() {
		r := worker.AbortStatus(jobID)
		r.JobType = jobType
		inv.finish(w, run, r, updateCh)
		return
	}

	// The authoritative admission check. The scheduler consults the monitor
	// too, but only as routing advice; this one decides.
	ok, reason := inv.adm.CanStartJob(jobType)
	if !ok {
		r := worker.DeniedStatus(jobID, worker.NewDeniedError(reason))
		r.JobType = jobType
		inv.finish(w, run, r, updateCh)
		return
	}
	if reason != "" {
		st = worker.RunningStatus(jobID)
		st.JobType = jobType
		st.Message = "resource warning: " + reason
		updateCh <- st
	}

	workCh := make(chan workResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				inv.stat.Counter(stats.WorkerPanicCounter).Inc(1)
				log.Errorf("Worker panic for job %s: %v\n%s", jobID, p, debug.Stack())
				workCh <- workResult{err: worker.NewPanicError(fmt.Errorf("%v", p), string(debug.Stack()))}
			}
		}()
		result, err := w.DoWork(run)
		if err != nil {
			workCh <- workResult{err: worker.NewWorkError(err)}
			return
		}
		workCh <- workResult{result: result}
	}()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		timeoutCh = timer.C
		defer timer.Stop()
	}

	for {
		select {
		case report := <-run.Reports():
			st = worker.RunningStatus(jobID)
			st.JobType = jobType
			st.Progress = report.Progress
			st.Message = report.Status
			updateCh <- st
		case <-abortCh:
			run.Cancel()
			r := worker.AbortStatus(jobID)
			r.JobType = jobType
			inv.finishAfterWork(w, run, r, workCh, updateCh)
			return
		case <-timeoutCh:
			log.Infof("Job %s exceeded its timeout budget %v, cancelling", jobID, timeout)
			run.Cancel()
			r := worker.TimeoutStatus(jobID, worker.NewTimeoutError(timeout))
			r.JobType = jobType
			inv.finishAfterWork(w, run, r, workCh, updateCh)
			return
		case res := <-workCh:
			var r worker.RunStatus
			switch {
			case run.Cancelled():
				// A late result lost the race with cancellation; discard it.
				r = worker.AbortStatus(jobID)
			case res.err != nil:
				r = worker.ErrorStatus(jobID, res.err)
			default:
				r = worker.CompleteStatus(jobID, res.result)
			}
			r.JobType = jobType
			inv.finish(w, run, r, updateCh)
			return
		}
	}
}

type workResult struct {
	result interface{}
	err    *worker.RunError
}

// finish sends the terminal status r, cleans up, and sends the finished
// marking before closing updateCh.
func (inv *Invoker) finish(w worker.Worker, run *worker.Run, r worker.RunStatus, updateCh chan worker.RunStatus) {
	updateCh <- r
	inv.cleanup(w, run)
	r.Finished = true
	updateCh <- r
	close(updateCh)
}

// finishAfterWork sends the terminal status r right away but holds cleanup
// and the finished marking until DoWork returns. An aborted or timed-out
// worker may take a while to notice its token, and cleanup must not race
// work that is still running.
func (inv *Invoker) finishAfterWork(w worker.Worker, run *worker.Run, r worker.RunStatus, workCh chan workResult, updateCh chan worker.RunStatus) {
	updateCh <- r
	res := <-workCh
	if res.err != nil {
		log.Debugf("Job %s work returned after %v: %v", run.JobID(), r.State, res.err)
	}
	inv.cleanup(w, run)
	r.Finished = true
	updateCh <- r
	close(updateCh)
}

// cleanup runs Worker.Cleanup, absorbing errors and panics: cleanup
// failures are logged and counted but never change a run's outcome.
func (inv *Invoker) cleanup(w worker.Worker, run *worker.Run) {
	defer func() {
		if p := recover(); p != nil {
			inv.stat.Counter(stats.WorkerCleanupErrCounter).Inc(1)
			log.Errorf("Cleanup panic for job %s: %v", run.JobID(), p)
		}
	}()
	if err := w.Cleanup(); err != nil {
		inv.stat.Counter(stats.WorkerCleanupErrCounter).Inc(1)
		log.Errorf("Cleanup error for job %s: %v", run.JobID(), err)
	}
}
