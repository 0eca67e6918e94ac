// Package scheduler provides the main job scheduling interface for Gantry.
package scheduler

//go:generate mockgen -source=scheduler.go -package=scheduler -destination=scheduler_mock.go

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/common/stats"
	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/sched"
	"github.com/gantrylabs/gantry/worker"
	"github.com/gantrylabs/gantry/worker/workers"
)

// Resources reports admission decisions and the sustainable pool width.
// *monitor.Monitor implements Resources.
type Resources interface {
	CanStartJob(t monitor.JobType) (ok bool, reason string)
	OptimalPoolSize() int
}

// SchedulerConfig bounds the scheduler's pool, queue and pacing.
type SchedulerConfig struct {
	// PoolSize is the number of jobs run concurrently. 0 sizes the
	// pool from Resources.OptimalPoolSize at construction.
	PoolSize int
	// MaxQueueSize caps queued+active jobs. Submissions beyond the cap
	// fail synchronously with sched.ErrQueueFull.
	MaxQueueSize int
	// DispatchInterval paces the periodic dispatch pass that retries
	// jobs held back by admission control.
	DispatchInterval time.Duration
	// ShutdownGrace bounds how long Shutdown(true) waits for running
	// jobs to wind down.
	ShutdownGrace time.Duration
}

const (
	DefaultMaxQueueSize     = 1000
	DefaultDispatchInterval = 250 * time.Millisecond
	DefaultShutdownGrace    = 30 * time.Second
)

// Stats is a point-in-time snapshot of scheduler load.
type Stats struct {
	// Jobs waiting to be dispatched.
	QueueSize int
	// Jobs occupying a pool slot.
	ActiveCount int
	// Jobs accepted since construction.
	TotalSubmitted int
	// Pool width.
	PoolSize int
	// Envelopes still winding down, including cancelled-job teardowns.
	PoolActive int
	ShuttingDown bool
}

type entryState int

const (
	entryQueued entryState = iota
	entryActive
	entryTearingDown
)

// jobEntry is the owner loop's view of one submitted job. Only the owner
// goroutine touches it after submission.
type jobEntry struct {
	job *sched.Job
	// prio is the job's current dispatch priority; demotion moves it
	// below the submitted Def.Priority.
	prio      sched.Priority
	demotions int
	state     entryState
	cancelled bool
	run       *worker.Run
	abortCh   chan<- struct{}
	waitLat   stats.Latency
}

type submitReq struct {
	def      sched.JobDefinition
	resultCh chan submitResult
}

type submitResult struct {
	jobID string
	err   error
}

type cancelReq struct {
	jobID    string
	resultCh chan bool
}

type shutdownReq struct {
	resultCh chan chan struct{}
}

// doneMsg reports a closed update stream back to the owner loop.
type doneMsg struct {
	jobID string
	final worker.RunStatus
}

// JobScheduler runs submitted jobs on a bounded worker pool, dispatching
// by priority then arrival order, subject to admission control.
//
// All bookkeeping lives on a single owner goroutine; public methods are
// safe for concurrent use and block only for the owner loop round trip.
// Job callbacks and Listener events are delivered from the owner
// goroutine: they must not block, and they must not call back into the
// scheduler except from their own goroutine.
type JobScheduler struct {
	cfg      SchedulerConfig
	res      Resources
	inv      *workers.Invoker
	sm       *workers.StatusManager
	listener Listener
	stat     stats.StatsReceiver

	// Owner loop state.
	queues   [][]*jobEntry
	jobs     map[string]*jobEntry
	active   map[string]*jobEntry
	draining bool
	idleCh   chan struct{}

	reqCh      chan interface{}
	dispatchCh chan struct{}
	doneCh     chan doneMsg
	tick       *time.Ticker

	// Atomic mirrors of owner state, read by Stats.
	queueSize  int64
	activeCnt  int64
	submitted  int64
	poolActive int64
	shutdown   int32
}

// NewJobScheduler starts a scheduler that serves submissions immediately.
// A nil listener drops events; a nil stat discards metrics.
func NewJobScheduler(res Resources, cfg SchedulerConfig, listener Listener, stat stats.StatsReceiver) *JobScheduler {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	if listener == nil {
		listener = NopListener{}
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = DefaultMaxQueueSize
	}
	if cfg.DispatchInterval <= 0 {
		cfg.DispatchInterval = DefaultDispatchInterval
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = res.OptimalPoolSize()
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	s := &JobScheduler{
		cfg:        cfg,
		res:        res,
		inv:        workers.NewInvoker(res, stat),
		sm:         workers.NewStatusManager(),
		listener:   listener,
		stat:       stat.Scope("sched"),
		queues:     make([][]*jobEntry, sched.NumPriorities),
		jobs:       map[string]*jobEntry{},
		active:     map[string]*jobEntry{},
		reqCh:      make(chan interface{}),
		dispatchCh: make(chan struct{}, 1),
		doneCh:     make(chan doneMsg),
		tick:       time.NewTicker(cfg.DispatchInterval),
	}
	log.WithFields(log.Fields{
		"poolSize":     cfg.PoolSize,
		"maxQueueSize": cfg.MaxQueueSize,
	}).Info("Starting JobScheduler")
	go s.run()
	return s
}

// StatusManager returns the store tracking per-job status. Callers may
// use it to Erase finished jobs they no longer care about.
func (s *JobScheduler) StatusManager() *workers.StatusManager {
	return s.sm
}

// SubmitJob validates def, assigns a job id and queues the job at its
// priority's tail. It fails with sched.ErrQueueFull when queued plus
// active jobs have reached MaxQueueSize, and with sched.ErrShuttingDown
// after Shutdown has begun.
func (s *JobScheduler) SubmitJob(def sched.JobDefinition) (string, error) {
	defer s.stat.Latency(stats.SchedSubmitLatency_ms).Time().Stop()
	s.stat.Counter(stats.SchedSubmitCounter).Inc(1)

	var res submitResult
	if err := def.Validate(); err != nil {
		res.err = err
	} else {
		resultCh := make(chan submitResult)
		s.reqCh <- submitReq{def: def, resultCh: resultCh}
		res = <-resultCh
	}
	if res.err != nil {
		s.stat.Counter(stats.SchedSubmitRejectedCounter).Inc(1)
		return "", res.err
	}
	return res.jobID, nil
}

// CancelJob requests cancellation of a job. A queued job is discarded
// and torn down without running; an active job has cancellation
// forwarded to its run token and winds down at its own pace. Returns
// true if the job was known and not yet finished. Cancelling an already
// cancelled job is a no-op that returns true.
func (s *JobScheduler) CancelJob(jobID string) bool {
	resultCh := make(chan bool)
	s.reqCh <- cancelReq{jobID: jobID, resultCh: resultCh}
	return <-resultCh
}

// Status returns the job's current status.
func (s *JobScheduler) Status(jobID string) (worker.RunStatus, error) {
	return s.sm.Status(jobID)
}

// WaitForStatus returns the job's status once it matches mask, blocking
// per w. It errors if the job is unknown or the wait expires first.
func (s *JobScheduler) WaitForStatus(jobID string, mask worker.StateMask, w worker.Wait) (worker.RunStatus, error) {
	return worker.SingleStatus(s.sm.Query(worker.Query{Runs: []string{jobID}, States: mask}, w))
}

// Stats reads a snapshot of scheduler load without touching the owner
// loop. Counts may trail the loop by an instant.
func (s *JobScheduler) Stats() Stats {
	return Stats{
		QueueSize:      int(atomic.LoadInt64(&s.queueSize)),
		ActiveCount:    int(atomic.LoadInt64(&s.activeCnt)),
		TotalSubmitted: int(atomic.LoadInt64(&s.submitted)),
		PoolSize:       s.cfg.PoolSize,
		PoolActive:     int(atomic.LoadInt64(&s.poolActive)),
		ShuttingDown:   atomic.LoadInt32(&s.shutdown) != 0,
	}
}

// Shutdown stops dispatching, discards every queued job and requests
// cancellation on every active one. Subsequent submissions fail with
// sched.ErrShuttingDown. With wait=true it blocks until all jobs have
// wound down or ShutdownGrace elapses, whichever is first.
func (s *JobScheduler) Shutdown(wait bool) {
	defer s.stat.Latency(stats.SchedShutdownLatency_ms).Time().Stop()
	resultCh := make(chan chan struct{})
	s.reqCh <- shutdownReq{resultCh: resultCh}
	idleCh := <-resultCh
	if !wait {
		return
	}
	select {
	case <-idleCh:
		log.Info("Scheduler drained")
	case <-time.After(s.cfg.ShutdownGrace):
		log.Warnf("Scheduler shutdown grace %v elapsed with %d jobs still winding down",
			s.cfg.ShutdownGrace, atomic.LoadInt64(&s.poolActive))
	}
}

// run is the owner loop. It never exits, so requests sent after
// shutdown still get answers instead of deadlocking.
func (s *JobScheduler) run() {
	for {
		select {
		case req := <-s.reqCh:
			switch r := req.(type) {
			case submitReq:
				r.resultCh <- s.submit(r.def)
			case cancelReq:
				r.resultCh <- s.cancel(r.jobID)
			case shutdownReq:
				r.resultCh <- s.beginShutdown()
			}
		case <-s.dispatchCh:
			s.dispatch()
		case <-s.tick.C:
			s.dispatch()
		case done := <-s.doneCh:
			s.finished(done)
		}
		s.updateGauges()
	}
}

func (s *JobScheduler) submit(def sched.JobDefinition) submitResult {
	if s.draining {
		return submitResult{err: sched.ErrShuttingDown}
	}
	if s.qsize()+len(s.active) >= s.cfg.MaxQueueSize {
		log.Infof("Rejecting job, queue is full (%d queued, %d active)", s.qsize(), len(s.active))
		return submitResult{err: sched.ErrQueueFull}
	}
	job := sched.NewJob(def)
	if _, err := s.sm.NewRun(job.ID, def.Type); err != nil {
		return submitResult{err: err}
	}
	e := &jobEntry{
		job:     job,
		prio:    def.Priority,
		waitLat: s.stat.Latency(stats.WorkerQueueWaitLatency_ms).Time(),
	}
	s.enqueue(e)
	s.jobs[job.ID] = e
	atomic.AddInt64(&s.submitted, 1)
	log.WithFields(log.Fields{
		"jobID":    job.ID,
		"jobType":  def.Type,
		"priority": def.Priority,
		"timeout":  def.Timeout,
	}).Info("Job submitted")
	s.listener.JobQueued(job.ID)
	s.listener.QueueSizeChanged(s.qsize())
	s.triggerDispatch()
	return submitResult{jobID: job.ID}
}

// dispatch fills free pool slots from the queues, highest priority
// first, oldest first within a priority. Jobs the monitor refuses are
// demoted one level and requeued at their new tail; refused Critical
// jobs keep their place at the head for a later pass. A job is examined
// at most once per pass.
func (s *JobScheduler) dispatch() {
	if s.draining {
		return
	}
	capacity := s.cfg.PoolSize - len(s.active)
	if capacity <= 0 || s.qsize() == 0 {
		return
	}
	defer s.stat.Latency(stats.SchedDispatchLatency_ms).Time().Stop()

	sizeBefore := s.qsize()
	var deferFront, deferTail []*jobEntry
	for capacity > 0 {
		e := s.pop()
		if e == nil {
			break
		}
		ok, reason := s.res.CanStartJob(e.job.Def.Type)
		if !ok {
			if e.prio == sched.Critical {
				log.WithFields(log.Fields{
					"jobID":  e.job.ID,
					"reason": reason,
				}).Debug("Holding denied critical job at queue head")
				deferFront = append(deferFront, e)
			} else {
				s.demote(e, reason)
				deferTail = append(deferTail, e)
			}
			continue
		}
		s.start(e)
		capacity--
	}
	// Deferred entries rejoin the queues only after the pass so they
	// are not popped twice. Held Critical jobs keep arrival order
	// ahead of everything queued behind them.
	if len(deferFront) > 0 {
		s.queues[int(sched.Critical)] = append(deferFront, s.queues[int(sched.Critical)]...)
		atomic.AddInt64(&s.queueSize, int64(len(deferFront)))
	}
	for _, e := range deferTail {
		s.enqueue(e)
	}
	if s.qsize() != sizeBefore {
		s.listener.QueueSizeChanged(s.qsize())
	}
}

// pop removes and returns the oldest entry of the best nonempty queue,
// discarding entries cancelled while queued. Returns nil when all
// queues are empty.
func (s *JobScheduler) pop() *jobEntry {
	for p := range s.queues {
		q := s.queues[p]
		for len(q) > 0 {
			e := q[0]
			q = q[1:]
			if e.cancelled {
				// Torn down at cancel time; drop the stale entry.
				continue
			}
			s.queues[p] = q
			atomic.AddInt64(&s.queueSize, -1)
			return e
		}
		s.queues[p] = q
	}
	return nil
}

func (s *JobScheduler) enqueue(e *jobEntry) {
	s.queues[int(e.prio)] = append(s.queues[int(e.prio)], e)
	atomic.AddInt64(&s.queueSize, 1)
}

func (s *JobScheduler) demote(e *jobEntry, reason string) {
	from := e.prio
	e.prio = from.Demote()
	if e.prio == from {
		// Already at the floor; the entry just moves to the tail.
		return
	}
	e.demotions++
	s.stat.Counter(stats.SchedJobDemotedCounter).Inc(1)
	log.WithFields(log.Fields{
		"jobID":     e.job.ID,
		"from":      from,
		"to":        e.prio,
		"demotions": e.demotions,
		"reason":    reason,
	}).Info("Demoting denied job")
	st := worker.PendingStatus(e.job.ID)
	st.Message = fmt.Sprintf("demotion %d, now %v: %s", e.demotions, e.prio, reason)
	if err := s.sm.Update(st); err != nil {
		log.Warnf("Could not record demotion of job %s: %v", e.job.ID, err)
	}
	s.listener.JobDemoted(e.job.ID, from, e.prio)
}

// start hands an admitted entry to the execution envelope.
func (s *JobScheduler) start(e *jobEntry) {
	e.waitLat.Stop()
	run := worker.NewRun(e.job.ID)
	abortCh, updateCh := s.inv.Run(e.job.Def.Worker, run, e.job.Def.Type, e.job.Def.Timeout)
	e.run = run
	e.abortCh = abortCh
	e.state = entryActive
	s.active[e.job.ID] = e
	atomic.AddInt64(&s.activeCnt, 1)
	atomic.AddInt64(&s.poolActive, 1)
	s.stat.Counter(stats.SchedJobStartedCounter).Inc(1)
	log.WithFields(log.Fields{
		"jobID":    e.job.ID,
		"jobType":  e.job.Def.Type,
		"priority": e.prio,
	}).Info("Dispatching job")
	s.listener.JobStarted(e.job.ID)
	go s.watch(e.job.ID, updateCh)
}

// watch drains one run's updates into the status store and reports the
// closed stream back to the owner loop.
func (s *JobScheduler) watch(jobID string, updateCh <-chan worker.RunStatus) {
	var final worker.RunStatus
	for st := range updateCh {
		if err := s.sm.Update(st); err != nil {
			log.Warnf("Dropping status update for job %s: %v", jobID, err)
		}
		if st.Finished {
			final = st
		}
	}
	s.doneCh <- doneMsg{jobID: jobID, final: final}
}

func (s *JobScheduler) cancel(jobID string) bool {
	e, ok := s.jobs[jobID]
	if !ok {
		return false
	}
	if e.cancelled {
		return true
	}
	e.cancelled = true
	switch e.state {
	case entryQueued:
		log.Infof("Cancelling queued job %s", jobID)
		e.state = entryTearingDown
		e.waitLat.Stop()
		atomic.AddInt64(&s.queueSize, -1)
		atomic.AddInt64(&s.poolActive, 1)
		run := worker.NewRun(jobID)
		e.run = run
		updateCh := s.inv.Abort(e.job.Def.Worker, run, e.job.Def.Type)
		go s.watch(jobID, updateCh)
		s.listener.QueueSizeChanged(s.qsize())
	case entryActive:
		log.Infof("Cancelling active job %s", jobID)
		e.run.Cancel()
		close(e.abortCh)
	}
	s.stat.Counter(stats.SchedJobCancelledCounter).Inc(1)
	s.listener.JobCancelled(jobID)
	return true
}

// finished retires a job whose update stream has closed. Exactly one
// terminal callback and listener event fired per job; ABORTED finals
// already reported cancelled when the cancellation was requested.
func (s *JobScheduler) finished(done doneMsg) {
	e, ok := s.jobs[done.jobID]
	if !ok {
		panic(fmt.Sprintf("finished update for unknown job %v", done.jobID))
	}
	if !done.final.Finished {
		panic(fmt.Sprintf("job %v stream closed without a finished status", done.jobID))
	}
	delete(s.jobs, done.jobID)
	if e.state == entryActive {
		delete(s.active, done.jobID)
		atomic.AddInt64(&s.activeCnt, -1)
	}
	log.WithFields(log.Fields{
		"jobID": done.jobID,
		"state": done.final.State,
	}).Info("Job finished")

	def := e.job.Def
	switch done.final.State {
	case worker.COMPLETE:
		s.stat.Counter(stats.SchedJobCompletedCounter).Inc(1)
		s.listener.JobCompleted(done.jobID)
		if def.OnComplete != nil {
			def.OnComplete(done.final.Result)
		}
	case worker.FAILED:
		s.stat.Counter(stats.SchedJobFailedCounter).Inc(1)
		s.fail(done.jobID, def, done.final.Err)
	case worker.TIMEDOUT:
		s.stat.Counter(stats.SchedJobTimedOutCounter).Inc(1)
		s.fail(done.jobID, def, done.final.Err)
	case worker.DENIED:
		s.stat.Counter(stats.SchedJobDeniedCounter).Inc(1)
		reason := ""
		if done.final.Err != nil && done.final.Err.Cause != nil {
			reason = done.final.Err.Cause.Error()
		}
		s.listener.JobDenied(done.jobID, reason)
		if def.OnError != nil {
			def.OnError(done.final.Err)
		}
	case worker.ABORTED:
		if !e.cancelled {
			// The worker cancelled its own run token.
			s.stat.Counter(stats.SchedJobCancelledCounter).Inc(1)
			s.listener.JobCancelled(done.jobID)
		}
	default:
		panic(fmt.Sprintf("job %v finished in non-terminal state %v", done.jobID, done.final.State))
	}

	// Decremented after the callbacks so a drained PoolActive means all
	// events for retired jobs have been delivered.
	atomic.AddInt64(&s.poolActive, -1)
	if s.draining && len(s.jobs) == 0 {
		close(s.idleCh)
	}
	s.triggerDispatch()
}

func (s *JobScheduler) fail(jobID string, def sched.JobDefinition, err *worker.RunError) {
	s.listener.JobFailed(jobID, err)
	if def.OnError != nil {
		def.OnError(err)
	}
}

// beginShutdown cancels everything and returns the channel closed once
// the last job has wound down.
func (s *JobScheduler) beginShutdown() chan struct{} {
	if s.draining {
		return s.idleCh
	}
	log.Infof("Scheduler draining: %d queued, %d active", s.qsize(), len(s.active))
	s.draining = true
	atomic.StoreInt32(&s.shutdown, 1)
	s.tick.Stop()
	s.idleCh = make(chan struct{})
	for id := range s.jobs {
		s.cancel(id)
	}
	if len(s.jobs) == 0 {
		close(s.idleCh)
	}
	return s.idleCh
}

func (s *JobScheduler) triggerDispatch() {
	select {
	case s.dispatchCh <- struct{}{}:
	default:
	}
}

func (s *JobScheduler) qsize() int {
	return int(atomic.LoadInt64(&s.queueSize))
}

func (s *JobScheduler) updateGauges() {
	s.stat.Gauge(stats.SchedQueueSizeGauge).Update(atomic.LoadInt64(&s.queueSize))
	s.stat.Gauge(stats.SchedActiveJobsGauge).Update(int64(len(s.active)))
	for p := 0; p < sched.NumPriorities; p++ {
		n := 0
		for _, e := range s.queues[p] {
			if !e.cancelled {
				n++
			}
		}
		s.stat.Gauge(stats.SchedQueuedPriorityGaugePrefix + strconv.Itoa(p)).Update(int64(n))
	}
}
