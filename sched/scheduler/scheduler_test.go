package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang/mock/gomock"

	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/sched"
	"github.com/gantrylabs/gantry/worker"
	"github.com/gantrylabs/gantry/worker/workers"
)

type schedEvent struct {
	kind   string
	id     string
	reason string
	err    error
	from   sched.Priority
	to     sched.Priority
	n      int
}

// recordingListener captures events for later assertions.
type recordingListener struct {
	mu     sync.Mutex
	events []schedEvent
}

func (l *recordingListener) add(e schedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingListener) JobQueued(id string)    { l.add(schedEvent{kind: "queued", id: id}) }
func (l *recordingListener) JobStarted(id string)   { l.add(schedEvent{kind: "started", id: id}) }
func (l *recordingListener) JobCompleted(id string) { l.add(schedEvent{kind: "completed", id: id}) }
func (l *recordingListener) JobFailed(id string, err error) {
	l.add(schedEvent{kind: "failed", id: id, err: err})
}
func (l *recordingListener) JobCancelled(id string) { l.add(schedEvent{kind: "cancelled", id: id}) }
func (l *recordingListener) JobDenied(id string, reason string) {
	l.add(schedEvent{kind: "denied", id: id, reason: reason})
}
func (l *recordingListener) JobDemoted(id string, from, to sched.Priority) {
	l.add(schedEvent{kind: "demoted", id: id, from: from, to: to})
}
func (l *recordingListener) QueueSizeChanged(n int) { l.add(schedEvent{kind: "queueSize", n: n}) }

// ids returns, in order, the job ids of every event of the given kind.
func (l *recordingListener) ids(kind string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if e.kind == kind {
			out = append(out, e.id)
		}
	}
	return out
}

func (l *recordingListener) count(id, kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.kind == kind && e.id == id {
			n++
		}
	}
	return n
}

func (l *recordingListener) find(id, kind string) (schedEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.kind == kind && e.id == id {
			return e, true
		}
	}
	return schedEvent{}, false
}

func (l *recordingListener) dump() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return spew.Sdump(l.events)
}

func allowAllResources(ctrl *gomock.Controller) *MockResources {
	res := NewMockResources(ctrl)
	res.EXPECT().CanStartJob(gomock.Any()).Return(true, "").AnyTimes()
	res.EXPECT().OptimalPoolSize().Return(1).AnyTimes()
	return res
}

func testCfg() SchedulerConfig {
	return SchedulerConfig{
		PoolSize:         1,
		MaxQueueSize:     100,
		DispatchInterval: 20 * time.Millisecond,
		ShutdownGrace:    5 * time.Second,
	}
}

func simDef(prio sched.Priority, script ...string) sched.JobDefinition {
	return sched.JobDefinition{
		Worker:   workers.NewSimWorker(script...),
		Type:     monitor.JobTypeAnalysis,
		Priority: prio,
	}
}

func waitDone(t *testing.T, s *JobScheduler, jobID string) worker.RunStatus {
	t.Helper()
	st, err := s.WaitForStatus(jobID, worker.DONE_MASK, worker.Wait{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("job %v never finished: %v", jobID, err)
	}
	return st
}

func waitRunning(t *testing.T, s *JobScheduler, jobID string) {
	t.Helper()
	_, err := s.WaitForStatus(jobID, worker.MaskForState(worker.RUNNING), worker.Wait{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("job %v never started: %v", jobID, err)
	}
}

func waitFor(t *testing.T, what string, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitIdle blocks until every submitted job has fully retired, which
// also means all events for those jobs have been delivered.
func waitIdle(t *testing.T, s *JobScheduler) {
	t.Helper()
	waitFor(t, "scheduler to go idle", func() bool {
		st := s.Stats()
		return st.PoolActive == 0 && st.QueueSize == 0 && st.ActiveCount == 0
	})
}

func TestSubmitInvalidDefinition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), nil, nil)
	defer s.Shutdown(false)

	if _, err := s.SubmitJob(sched.JobDefinition{Type: monitor.JobTypeAnalysis}); err == nil {
		t.Fatalf("expected error submitting a definition with no worker")
	}
	if _, err := s.SubmitJob(simDef(sched.Priority(7), "complete 0")); err == nil {
		t.Fatalf("expected error submitting an invalid priority")
	}
	if got := s.Stats().TotalSubmitted; got != 0 {
		t.Fatalf("rejected submissions counted as accepted: %v", got)
	}
}

func TestSubmitAndComplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	resultCh := make(chan interface{}, 1)
	def := simDef(sched.Normal, "complete 42")
	def.OnComplete = func(result interface{}) { resultCh <- result }
	jobID, err := s.SubmitJob(def)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	st := waitDone(t, s, jobID)
	if st.State != worker.COMPLETE || st.Result != 42 {
		t.Fatalf("unexpected final status: %v", st)
	}
	select {
	case result := <-resultCh:
		if result != 42 {
			t.Fatalf("OnComplete got %v, want 42", result)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("OnComplete never fired")
	}
	waitIdle(t, s)
	for _, kind := range []string{"queued", "started", "completed"} {
		if n := l.count(jobID, kind); n != 1 {
			t.Fatalf("want exactly 1 %v event, got %v\n%s", kind, n, l.dump())
		}
	}
	if st := s.Stats(); st.TotalSubmitted != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestJobFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	errCh := make(chan error, 1)
	def := simDef(sched.Normal, "error boom")
	def.OnError = func(err error) { errCh <- err }
	jobID, err := s.SubmitJob(def)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	st := waitDone(t, s, jobID)
	if st.State != worker.FAILED {
		t.Fatalf("unexpected final status: %v", st)
	}
	select {
	case err := <-errCh:
		re, ok := err.(*worker.RunError)
		if !ok || re.Kind != worker.ErrWork {
			t.Fatalf("OnError got %v, want a work error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("OnError never fired")
	}
	waitIdle(t, s)
	if n := l.count(jobID, "failed"); n != 1 {
		t.Fatalf("want exactly 1 failed event, got %v\n%s", n, l.dump())
	}
}

func TestJobTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	errCh := make(chan error, 1)
	def := simDef(sched.Normal, "sleep 10000", "complete 0")
	def.Timeout = 30 * time.Millisecond
	def.OnError = func(err error) { errCh <- err }
	jobID, err := s.SubmitJob(def)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	st := waitDone(t, s, jobID)
	if st.State != worker.TIMEDOUT {
		t.Fatalf("unexpected final status: %v", st)
	}
	select {
	case err := <-errCh:
		re, ok := err.(*worker.RunError)
		if !ok || re.Kind != worker.ErrTimeout {
			t.Fatalf("OnError got %v, want a timeout error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("OnError never fired")
	}
	// Timeouts surface through JobFailed; there is no separate event.
	waitIdle(t, s)
	if n := l.count(jobID, "failed"); n != 1 {
		t.Fatalf("want exactly 1 failed event, got %v\n%s", n, l.dump())
	}
}

func TestQueueFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	cfg := testCfg()
	cfg.MaxQueueSize = 2
	s := NewJobScheduler(allowAllResources(ctrl), cfg, nil, nil)
	defer s.Shutdown(false)

	w1 := workers.NewSimWorker("pause", "complete 0")
	id1, err := s.SubmitJob(sched.JobDefinition{Worker: w1, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit 1 failed: %v", err)
	}
	w2 := workers.NewSimWorker("pause", "complete 0")
	id2, err := s.SubmitJob(sched.JobDefinition{Worker: w2, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit 2 failed: %v", err)
	}

	if _, err := s.SubmitJob(simDef(sched.Critical, "complete 0")); err != sched.ErrQueueFull {
		t.Fatalf("submit 3 got %v, want ErrQueueFull", err)
	}

	w1.Resume()
	waitDone(t, s, id1)
	w2.Resume()
	waitDone(t, s, id2)

	// Capacity released; submissions flow again.
	id4, err := s.SubmitJob(simDef(sched.Normal, "complete 0"))
	if err != nil {
		t.Fatalf("submit after drain failed: %v", err)
	}
	waitDone(t, s, id4)
}

func TestPriorityDispatchOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	// Fill the single slot so later submissions queue up.
	filler := workers.NewSimWorker("pause", "complete 0")
	fillerID, err := s.SubmitJob(sched.JobDefinition{Worker: filler, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit filler failed: %v", err)
	}
	waitRunning(t, s, fillerID)

	type pj struct {
		prio sched.Priority
		w    *workers.SimWorker
		id   string
	}
	// Arrival order is worst-priority-first, so dispatch order proves
	// priority beats age.
	submitted := []*pj{{prio: sched.Low}, {prio: sched.Normal}, {prio: sched.High}, {prio: sched.Critical}}
	for _, j := range submitted {
		j.w = workers.NewSimWorker("pause", "complete 0")
		j.id, err = s.SubmitJob(sched.JobDefinition{Worker: j.w, Type: monitor.JobTypeAnalysis, Priority: j.prio})
		if err != nil {
			t.Fatalf("submit %v failed: %v", j.prio, err)
		}
	}

	filler.Resume()
	waitDone(t, s, fillerID)
	for i := len(submitted) - 1; i >= 0; i-- {
		j := submitted[i]
		waitRunning(t, s, j.id)
		j.w.Resume()
		waitDone(t, s, j.id)
	}

	want := []string{fillerID, submitted[3].id, submitted[2].id, submitted[1].id, submitted[0].id}
	got := l.ids("started")
	if len(got) != len(want) {
		t.Fatalf("started %d jobs, want %d\n%s", len(got), len(want), l.dump())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order %v, want %v", got, want)
		}
	}
}

func TestFIFOWithinPriority(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	filler := workers.NewSimWorker("pause", "complete 0")
	fillerID, err := s.SubmitJob(sched.JobDefinition{Worker: filler, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit filler failed: %v", err)
	}
	waitRunning(t, s, fillerID)

	var want []string
	workersByID := map[string]*workers.SimWorker{}
	for i := 0; i < 4; i++ {
		w := workers.NewSimWorker("pause", "complete 0")
		id, err := s.SubmitJob(sched.JobDefinition{Worker: w, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		want = append(want, id)
		workersByID[id] = w
	}

	filler.Resume()
	waitDone(t, s, fillerID)
	for _, id := range want {
		waitRunning(t, s, id)
		workersByID[id].Resume()
		waitDone(t, s, id)
	}

	got := l.ids("started")
	if len(got) != len(want)+1 {
		t.Fatalf("started %d jobs, want %d\n%s", len(got), len(want)+1, l.dump())
	}
	for i, id := range want {
		if got[i+1] != id {
			t.Fatalf("equal-priority dispatch order %v, want submission order %v", got[1:], want)
		}
	}
}

func TestCancelQueuedJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	filler := workers.NewSimWorker("pause", "complete 0")
	fillerID, err := s.SubmitJob(sched.JobDefinition{Worker: filler, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit filler failed: %v", err)
	}
	waitRunning(t, s, fillerID)

	// The queued job's work must never run; only its cleanup does.
	mw := worker.NewMockWorker(ctrl)
	mw.EXPECT().Cleanup().Return(nil)
	jobID, err := s.SubmitJob(sched.JobDefinition{Worker: mw, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if !s.CancelJob(jobID) {
		t.Fatalf("cancel of queued job returned false")
	}
	if !s.CancelJob(jobID) {
		t.Fatalf("repeated cancel returned false")
	}
	st := waitDone(t, s, jobID)
	if st.State != worker.ABORTED {
		t.Fatalf("unexpected final status: %v", st)
	}
	waitFor(t, "cancelled job to retire", func() bool {
		_, ok := l.find(jobID, "cancelled")
		return ok
	})
	if n := l.count(jobID, "cancelled"); n != 1 {
		t.Fatalf("want exactly 1 cancelled event, got %v\n%s", n, l.dump())
	}
	if n := l.count(jobID, "started"); n != 0 {
		t.Fatalf("cancelled queued job was dispatched\n%s", l.dump())
	}

	filler.Resume()
	waitDone(t, s, fillerID)
	waitIdle(t, s)
	if s.CancelJob(jobID) {
		t.Fatalf("cancel of finished job returned true")
	}
	if s.CancelJob("no-such-job") {
		t.Fatalf("cancel of unknown job returned true")
	}
}

func TestCancelActiveJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	w := workers.NewSimWorker("pause", "complete 0")
	jobID, err := s.SubmitJob(sched.JobDefinition{Worker: w, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	waitRunning(t, s, jobID)

	if !s.CancelJob(jobID) {
		t.Fatalf("cancel of active job returned false")
	}
	st := waitDone(t, s, jobID)
	if st.State != worker.ABORTED {
		t.Fatalf("unexpected final status: %v", st)
	}
	waitIdle(t, s)
	if n := l.count(jobID, "cancelled"); n != 1 {
		t.Fatalf("want exactly 1 cancelled event, got %v\n%s", n, l.dump())
	}
	if got := w.CleanupCount(); got != 1 {
		t.Fatalf("cleanup ran %v times, want 1", got)
	}
}

func TestWorkerSelfCancelReportsCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), l, nil)
	defer s.Shutdown(false)

	jobID, err := s.SubmitJob(sched.JobDefinition{Worker: selfCancellingWorker{}, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st := waitDone(t, s, jobID)
	if st.State != worker.ABORTED {
		t.Fatalf("unexpected final status: %v", st)
	}
	waitIdle(t, s)
	if n := l.count(jobID, "cancelled"); n != 1 {
		t.Fatalf("want exactly 1 cancelled event, got %v\n%s", n, l.dump())
	}
}

type selfCancellingWorker struct{}

func (w selfCancellingWorker) DoWork(run *worker.Run) (interface{}, error) {
	run.Cancel()
	return nil, nil
}

func (w selfCancellingWorker) Cleanup() error { return nil }

func TestDemotionOnDenial(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	res := NewMockResources(ctrl)
	// First dispatch attempt is refused; every later check passes.
	res.EXPECT().CanStartJob(gomock.Any()).Return(false, "RAM usage critical: 95.0% >= 90.0%")
	res.EXPECT().CanStartJob(gomock.Any()).Return(true, "").AnyTimes()
	l := &recordingListener{}
	s := NewJobScheduler(res, testCfg(), l, nil)
	defer s.Shutdown(false)

	jobID, err := s.SubmitJob(simDef(sched.High, "complete 7"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st := waitDone(t, s, jobID)
	if st.State != worker.COMPLETE {
		t.Fatalf("unexpected final status: %v", st)
	}
	waitIdle(t, s)
	if n := l.count(jobID, "demoted"); n != 1 {
		t.Fatalf("want exactly 1 demoted event, got %v\n%s", n, l.dump())
	}
	e, _ := l.find(jobID, "demoted")
	if e.from != sched.High || e.to != sched.Normal {
		t.Fatalf("demoted %v->%v, want HIGH->NORMAL", e.from, e.to)
	}
}

func TestDemotionFloorAtLow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	res := NewMockResources(ctrl)
	res.EXPECT().CanStartJob(gomock.Any()).Return(false, "CPU usage critical: 99.0% >= 95.0%").Times(2)
	res.EXPECT().CanStartJob(gomock.Any()).Return(true, "").AnyTimes()
	l := &recordingListener{}
	s := NewJobScheduler(res, testCfg(), l, nil)
	defer s.Shutdown(false)

	jobID, err := s.SubmitJob(simDef(sched.Low, "complete 0"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st := waitDone(t, s, jobID)
	if st.State != worker.COMPLETE {
		t.Fatalf("unexpected final status: %v", st)
	}
	// LOW is the floor: requeued without a demotion event.
	waitIdle(t, s)
	if n := l.count(jobID, "demoted"); n != 0 {
		t.Fatalf("job at the floor was demoted %v times\n%s", n, l.dump())
	}
}

func TestCriticalHeldWhenDenied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	res := NewMockResources(ctrl)
	res.EXPECT().CanStartJob(gomock.Any()).Return(false, "resource metrics unavailable").Times(3)
	res.EXPECT().CanStartJob(gomock.Any()).Return(true, "").AnyTimes()
	l := &recordingListener{}
	s := NewJobScheduler(res, testCfg(), l, nil)
	defer s.Shutdown(false)

	jobID, err := s.SubmitJob(simDef(sched.Critical, "complete 0"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st := waitDone(t, s, jobID)
	if st.State != worker.COMPLETE {
		t.Fatalf("unexpected final status: %v", st)
	}
	waitIdle(t, s)
	if n := l.count(jobID, "demoted"); n != 0 {
		t.Fatalf("critical job was demoted\n%s", l.dump())
	}
}

func TestTerminalDenial(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	res := NewMockResources(ctrl)
	// The dispatch check passes but the envelope's authoritative check
	// refuses: load changed between the two.
	res.EXPECT().CanStartJob(gomock.Any()).Return(true, "")
	res.EXPECT().CanStartJob(gomock.Any()).Return(false, "insufficient free RAM for analysis job: 100 bytes available, 200 required")
	l := &recordingListener{}
	s := NewJobScheduler(res, testCfg(), l, nil)
	defer s.Shutdown(false)

	errCh := make(chan error, 1)
	def := simDef(sched.Normal, "complete 0")
	def.OnError = func(err error) { errCh <- err }
	jobID, err := s.SubmitJob(def)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	st := waitDone(t, s, jobID)
	if st.State != worker.DENIED {
		t.Fatalf("unexpected final status: %v", st)
	}
	select {
	case err := <-errCh:
		re, ok := err.(*worker.RunError)
		if !ok || re.Kind != worker.ErrDenied {
			t.Fatalf("OnError got %v, want a denied error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("OnError never fired")
	}
	waitIdle(t, s)
	if n := l.count(jobID, "denied"); n != 1 {
		t.Fatalf("want exactly 1 denied event, got %v\n%s", n, l.dump())
	}
	e, _ := l.find(jobID, "denied")
	if e.reason != "insufficient free RAM for analysis job: 100 bytes available, 200 required" {
		t.Fatalf("unexpected denial reason: %q", e.reason)
	}
}

func TestShutdownDrainsQueuedAndActive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	cfg := SchedulerConfig{
		PoolSize:         2,
		MaxQueueSize:     100,
		DispatchInterval: 20 * time.Millisecond,
		ShutdownGrace:    5 * time.Second,
	}
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), cfg, l, nil)

	var actives []*workers.SimWorker
	var ids []string
	for i := 0; i < 2; i++ {
		w := workers.NewSimWorker("pause", "complete 0")
		id, err := s.SubmitJob(sched.JobDefinition{Worker: w, Type: monitor.JobTypeAnalysis, Priority: sched.Normal})
		if err != nil {
			t.Fatalf("submit active %d failed: %v", i, err)
		}
		actives = append(actives, w)
		ids = append(ids, id)
		waitRunning(t, s, id)
	}
	var queued []*workers.SimWorker
	for i := 0; i < 5; i++ {
		w := workers.NewSimWorker("complete 0")
		id, err := s.SubmitJob(sched.JobDefinition{Worker: w, Type: monitor.JobTypeIO, Priority: sched.Low})
		if err != nil {
			t.Fatalf("submit queued %d failed: %v", i, err)
		}
		queued = append(queued, w)
		ids = append(ids, id)
	}

	start := time.Now()
	s.Shutdown(true)
	if elapsed := time.Since(start); elapsed > cfg.ShutdownGrace {
		t.Fatalf("shutdown took %v, grace is %v", elapsed, cfg.ShutdownGrace)
	}

	for _, id := range ids {
		st := waitDone(t, s, id)
		if st.State != worker.ABORTED {
			t.Fatalf("job %v wound down as %v, want ABORTED", id, st.State)
		}
		if n := l.count(id, "cancelled"); n != 1 {
			t.Fatalf("job %v got %v cancelled events, want 1\n%s", id, n, l.dump())
		}
	}
	for i, w := range queued {
		if got := w.CleanupCount(); got != 1 {
			t.Fatalf("queued worker %d cleanup ran %v times, want 1", i, got)
		}
	}

	if _, err := s.SubmitJob(simDef(sched.Normal, "complete 0")); err != sched.ErrShuttingDown {
		t.Fatalf("submit after shutdown got %v, want ErrShuttingDown", err)
	}
	waitIdle(t, s)
	st := s.Stats()
	if !st.ShuttingDown || st.QueueSize != 0 || st.ActiveCount != 0 {
		t.Fatalf("unexpected stats after shutdown: %+v", st)
	}
	// A second shutdown is a bounded no-op.
	s.Shutdown(true)
}

func TestAutoPoolSize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	res := NewMockResources(ctrl)
	res.EXPECT().OptimalPoolSize().Return(3)
	res.EXPECT().CanStartJob(gomock.Any()).Return(true, "").AnyTimes()
	cfg := testCfg()
	cfg.PoolSize = 0
	s := NewJobScheduler(res, cfg, nil, nil)
	defer s.Shutdown(false)

	if got := s.Stats().PoolSize; got != 3 {
		t.Fatalf("pool size %v, want 3", got)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := NewJobScheduler(allowAllResources(ctrl), testCfg(), nil, nil)
	defer s.Shutdown(false)

	if _, err := s.Status("no-such-job"); err == nil {
		t.Fatalf("expected error querying unknown job")
	}
	if _, err := s.WaitForStatus("no-such-job", worker.DONE_MASK, worker.Wait{}); err == nil {
		t.Fatalf("expected error waiting on unknown job")
	}
}

func TestExactlyOneOutcomePerJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	cfg := SchedulerConfig{
		PoolSize:         3,
		MaxQueueSize:     200,
		DispatchInterval: 5 * time.Millisecond,
		ShutdownGrace:    5 * time.Second,
	}
	l := &recordingListener{}
	s := NewJobScheduler(allowAllResources(ctrl), cfg, l, nil)
	defer s.Shutdown(false)

	const numJobs = 30
	var ids []string
	requested := map[string]bool{}
	for i := 0; i < numJobs; i++ {
		var script []string
		switch i % 3 {
		case 0:
			script = []string{fmt.Sprintf("complete %d", i)}
		case 1:
			script = []string{fmt.Sprintf("error boom-%d", i)}
		default:
			script = []string{"sleep 5", fmt.Sprintf("complete %d", i)}
		}
		id, err := s.SubmitJob(simDef(sched.Priority(i%sched.NumPriorities), script...))
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		ids = append(ids, id)
		if i%7 == 0 {
			requested[id] = s.CancelJob(id)
		}
	}

	for _, id := range ids {
		waitDone(t, s, id)
	}
	waitIdle(t, s)

	for _, id := range ids {
		outcomes := l.count(id, "completed") + l.count(id, "failed") + l.count(id, "denied")
		cancels := l.count(id, "cancelled")
		if outcomes > 1 {
			t.Fatalf("job %v got %v outcome events\n%s", id, outcomes, l.dump())
		}
		if cancels > 1 {
			t.Fatalf("job %v got %v cancelled events\n%s", id, cancels, l.dump())
		}
		if outcomes+cancels == 0 {
			t.Fatalf("job %v got no terminal event\n%s", id, l.dump())
		}
		if took, ok := requested[id]; ok && took && cancels != 1 {
			t.Fatalf("cancelled job %v got %v cancelled events\n%s", id, cancels, l.dump())
		}
		if _, ok := requested[id]; !ok && cancels != 0 {
			t.Fatalf("uncancelled job %v got %v cancelled events\n%s", id, cancels, l.dump())
		}
	}
}
