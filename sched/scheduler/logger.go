package scheduler

import (
	"github.com/luci/go-render/render"
	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/sched"
)

// LoggingListener logs every scheduler event. Useful when debugging
// dispatch decisions; too chatty for production at full volume.
type LoggingListener struct{}

func (l LoggingListener) JobQueued(id string) {
	log.Infof("Job Queued %s", id)
}

func (l LoggingListener) JobStarted(id string) {
	log.Infof("Job Started %s", id)
}

func (l LoggingListener) JobCompleted(id string) {
	log.Infof("Job Completed %s", id)
}

func (l LoggingListener) JobFailed(id string, err error) {
	log.Infof("Job Failed %s %s", id, render.Render(err))
}

func (l LoggingListener) JobCancelled(id string) {
	log.Infof("Job Cancelled %s", id)
}

func (l LoggingListener) JobDenied(id string, reason string) {
	log.Infof("Job Denied %s %q", id, reason)
}

func (l LoggingListener) JobDemoted(id string, from, to sched.Priority) {
	log.Infof("Job Demoted %s %v->%v", id, from, to)
}

func (l LoggingListener) QueueSizeChanged(n int) {
	log.Infof("Queue Size %d", n)
}
