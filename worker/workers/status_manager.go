package workers

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/worker"
)

const UnknownJobIDMsg = "unknown job id %v"

// NewStatusManager creates a new empty StatusManager.
func NewStatusManager() *StatusManager {
	return &StatusManager{runs: make(map[string]worker.RunStatus)}
}

// StatusManager is a database of RunStatus'es, one per submitted job. It
// allows clients to write updates, query current statuses, and listen for
// future updates that match a query. It implements worker.StatusQuerier.
type StatusManager struct {
	mu        sync.Mutex
	runs      map[string]worker.RunStatus
	listeners []queryAndCh
}

type queryAndCh struct {
	q  worker.Query
	ch chan worker.RunStatus
}

// NewRun registers a job in state PENDING. The id must not already be
// registered.
func (s *StatusManager) NewRun(jobID string, jobType monitor.JobType) (worker.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.runs[jobID]; ok {
		return worker.RunStatus{}, fmt.Errorf("job id %v already registered (%v)", jobID, old.State)
	}
	st := worker.PendingStatus(jobID)
	st.JobType = jobType
	s.runs[jobID] = st
	return st, nil
}

// Update writes a new status for a job and wakes any listeners whose
// query it matches.
//
// Once a run reaches a done state its status is immutable, with one
// exception: the same terminal state may be written once more with
// Finished set, recording that cleanup has run. Any other post-done write
// is silently dropped. A second finished write for the same run is a bug
// in the caller and panics.
//
// Progress, Message, Result, Err and JobType stick until overwritten.
func (s *StatusManager) Update(newStatus worker.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldStatus, ok := s.runs[newStatus.JobID]
	if ok && oldStatus.State.IsDone() {
		if newStatus.State != oldStatus.State || !newStatus.Finished {
			return nil
		}
		if oldStatus.Finished {
			panic(fmt.Sprintf("job %v marked finished twice", newStatus.JobID))
		}
	}

	if newStatus.Progress == nil {
		newStatus.Progress = oldStatus.Progress
	}
	if newStatus.Message == "" {
		newStatus.Message = oldStatus.Message
	}
	if newStatus.Result == nil {
		newStatus.Result = oldStatus.Result
	}
	if newStatus.Err == nil {
		newStatus.Err = oldStatus.Err
	}
	if newStatus.JobType == "" {
		newStatus.JobType = oldStatus.JobType
	}

	log.Debugf("StatusManager is holding status: %v", newStatus)
	s.runs[newStatus.JobID] = newStatus

	listeners := make([]queryAndCh, 0, len(s.listeners))
	for _, listener := range s.listeners {
		if listener.q.Matches(newStatus) {
			listener.ch <- newStatus
			close(listener.ch)
		} else {
			listeners = append(listeners, listener)
		}
	}
	s.listeners = listeners
	return nil
}

// Query returns all statuses matching q. If w is nonzero and nothing
// matches now, it blocks until the first matching update or the wait
// expires.
func (s *StatusManager) Query(q worker.Query, w worker.Wait) ([]worker.RunStatus, error) {
	current, future, err := s.queryAndListen(q, w.Timeout != 0)
	if err != nil || len(current) > 0 || w.Timeout == 0 {
		return current, err
	}

	var timeout <-chan time.Time
	if w.Timeout > 0 {
		ticker := time.NewTicker(w.Timeout)
		timeout = ticker.C
		defer ticker.Stop()
	}

	select {
	case st := <-future:
		return []worker.RunStatus{st}, nil
	case <-timeout:
	}
	return nil, nil
}

// QueryNow returns all statuses matching q in their current state.
func (s *StatusManager) QueryNow(q worker.Query) ([]worker.RunStatus, error) {
	return s.Query(q, worker.Wait{})
}

// Status returns the current status of jobID.
func (s *StatusManager) Status(jobID string) (worker.RunStatus, error) {
	return worker.StatusNow(s, jobID)
}

// StatusAll returns the current status of every registered run.
func (s *StatusManager) StatusAll() ([]worker.RunStatus, error) {
	return s.QueryNow(worker.Query{AllRuns: true, States: worker.ALL_MASK})
}

// Erase forgets a finished run so StatusAll stays bounded. Erasing a run
// that is still in flight is refused.
func (s *StatusManager) Erase(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.runs[jobID]; ok && st.State.IsDone() {
		delete(s.runs, jobID)
	}
}

// queryAndListen performs the query, returning current matches. If there
// are none and listen is set, it registers and returns a listener channel
// that will receive the first future matching update.
func (s *StatusManager) queryAndListen(q worker.Query, listen bool) (current []worker.RunStatus, future chan worker.RunStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.AllRuns {
		for _, st := range s.runs {
			if q.States.Matches(st.State) {
				current = append(current, st)
			}
		}
	} else {
		for _, jobID := range q.Runs {
			st, ok := s.runs[jobID]
			if !ok {
				return nil, nil, fmt.Errorf(UnknownJobIDMsg, jobID)
			}
			if q.States.Matches(st.State) {
				current = append(current, st)
			}
		}
	}

	if len(current) > 0 || !listen {
		return current, nil, nil
	}

	ch := make(chan worker.RunStatus, 1)
	s.listeners = append(s.listeners, queryAndCh{q: q, ch: ch})
	return nil, ch, nil
}
