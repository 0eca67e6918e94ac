package worker

import (
	"testing"
)

func TestRunCancellation(t *testing.T) {
	run := NewRun("job1")
	if run.Cancelled() {
		t.Fatal("expected a fresh run to not be cancelled")
	}
	select {
	case <-run.Done():
		t.Fatal("expected Done to stay open before Cancel")
	default:
	}

	run.Cancel()
	run.Cancel() // idempotent

	if !run.Cancelled() {
		t.Fatal("expected Cancelled after Cancel")
	}
	select {
	case <-run.Done():
	default:
		t.Fatal("expected Done to be closed after Cancel")
	}
}

func TestRunReports(t *testing.T) {
	run := NewRun("job1")

	run.ReportProgress(1, 10, "step one")
	run.ReportStatus("warming up")

	r := <-run.Reports()
	if r.Progress == nil || r.Progress.Current != 1 || r.Progress.Total != 10 || r.Progress.Message != "step one" {
		t.Fatalf("unexpected progress report: %+v", r)
	}
	r = <-run.Reports()
	if r.Status != "warming up" {
		t.Fatalf("unexpected status report: %+v", r)
	}
}

func TestRunReportsSuppressedAfterCancel(t *testing.T) {
	run := NewRun("job1")
	run.Cancel()

	run.ReportProgress(1, 2, "ignored")
	run.ReportStatus("ignored")

	select {
	case r := <-run.Reports():
		t.Fatalf("expected reports to be suppressed after cancel, got %+v", r)
	default:
	}
}

func TestRunReportsNeverBlock(t *testing.T) {
	run := NewRun("job1")
	// overflow the buffer; the excess must be dropped, not block the caller
	for i := 0; i < reportBuffer*2; i++ {
		run.ReportStatus("flood")
	}
	drained := 0
	for {
		select {
		case <-run.Reports():
			drained++
			continue
		default:
		}
		break
	}
	if drained != reportBuffer {
		t.Fatalf("expected %d buffered reports, got %d", reportBuffer, drained)
	}
}
