package monitor

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/common/stats"
)

// HealthState buckets a snapshot against the warning/critical thresholds.
type HealthState int

const (
	Healthy HealthState = iota
	Warning
	Critical
)

func (s HealthState) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// classify buckets m. Unknown snapshots classify as Critical: when the host
// cannot be seen, assume the worst.
func classify(m Metrics, l Limits) HealthState {
	if m.Unknown {
		return Critical
	}
	if m.RAMPercent >= l.RAMCriticalPct || m.CPUPercent >= l.CPUCriticalPct {
		return Critical
	}
	if m.RAMPercent >= l.RAMWarningPct || m.CPUPercent >= l.CPUWarningPct {
		return Warning
	}
	return Healthy
}

// HealthEvent describes one health state transition.
type HealthEvent struct {
	From    HealthState
	To      HealthState
	Metrics Metrics
	At      time.Time
}

// HealthListener receives transition events on the watcher goroutine, one
// at a time. Listeners must not block.
type HealthListener func(HealthEvent)

// A Watcher samples on a fixed interval and notifies listeners of health
// transitions. Events are edge-triggered: listeners hear about each change
// once, never about every sample within a state, so a host pinned at
// critical produces one event rather than a flood.
//
// A Watcher starts from Healthy; a first sample in any other state fires a
// transition.
type Watcher struct {
	monitor   *Monitor
	interval  time.Duration
	stat      stats.StatsReceiver
	listeners []HealthListener
	last      HealthState

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWatcher(m *Monitor, interval time.Duration) *Watcher {
	return &Watcher{
		monitor:  m,
		interval: interval,
		stat:     m.stat,
	}
}

// AddListener registers l for transition events. Not safe to call once the
// watcher has started.
func (w *Watcher) AddListener(l HealthListener) {
	w.listeners = append(w.listeners, l)
}

// Start launches the sampling goroutine. Starting a running watcher is a
// no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop(w.stopCh, w.doneCh)
}

// Stop halts sampling and joins the goroutine. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
	w.doneCh = nil
}

func (w *Watcher) loop(stopCh chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	metrics := w.monitor.Refresh()
	state := classify(metrics, w.monitor.limits)
	w.stat.Gauge(stats.MonitorHealthLevelGauge).Update(int64(state))
	if state == w.last {
		return
	}
	ev := HealthEvent{From: w.last, To: state, Metrics: metrics, At: time.Now()}
	w.last = state
	log.Infof("Health transition %v -> %v (ram %.1f%%, cpu %.1f%%)",
		ev.From, ev.To, metrics.RAMPercent, metrics.CPUPercent)
	w.stat.Counter(stats.MonitorHealthEventCounter).Inc(1)
	for _, l := range w.listeners {
		l(ev)
	}
}
