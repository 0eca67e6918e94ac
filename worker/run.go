package worker

import "sync"

// Reports sent faster than the envelope drains them are dropped rather
// than blocking DoWork.
const reportBuffer = 16

// Progress is a point-in-time report from inside DoWork.
type Progress struct {
	Current int
	Total   int
	Message string
}

// Report is one progress or status message published through a Run.
type Report struct {
	// Set for ReportProgress reports.
	Progress *Progress
	// Set for ReportStatus reports.
	Status string
}

// Run is the per-job cancellation token and reporting handle passed into
// DoWork. The scheduler keeps one side to request cancellation; the worker
// polls the other between units of work.
type Run struct {
	jobID   string
	doneCh  chan struct{}
	once    sync.Once
	reports chan Report
}

func NewRun(jobID string) *Run {
	return &Run{
		jobID:   jobID,
		doneCh:  make(chan struct{}),
		reports: make(chan Report, reportBuffer),
	}
}

func (r *Run) JobID() string {
	return r.jobID
}

// Cancel requests cooperative cancellation. Idempotent, never blocks. The
// work exits at its next poll; Cancel cannot force a stop.
func (r *Run) Cancel() {
	r.once.Do(func() { close(r.doneCh) })
}

// Cancelled polls the cancellation flag. Long loops inside DoWork check it
// between units of work.
func (r *Run) Cancelled() bool {
	select {
	case <-r.doneCh:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once cancellation is requested, for
// implementations that select instead of polling.
func (r *Run) Done() <-chan struct{} {
	return r.doneCh
}

// ReportProgress publishes a progress report. Reports are advisory: they
// are suppressed once cancellation is requested and dropped when the
// envelope is not keeping up.
func (r *Run) ReportProgress(current, total int, message string) {
	if r.Cancelled() {
		return
	}
	select {
	case r.reports <- Report{Progress: &Progress{Current: current, Total: total, Message: message}}:
	default:
	}
}

// ReportStatus publishes a status message, with the same suppression rules
// as ReportProgress.
func (r *Run) ReportStatus(message string) {
	if r.Cancelled() {
		return
	}
	select {
	case r.reports <- Report{Status: message}:
	default:
	}
}

// Reports is drained by the execution envelope and forwarded as RUNNING
// status updates.
func (r *Run) Reports() <-chan Report {
	return r.reports
}
