package monitor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/common/stats"
)

// Pool sizing halves capacity above these loads. They are part of the
// sizing formula, not tied to the admission thresholds in Limits.
const (
	poolSizeCPUPct = 70
	poolSizeRAMPct = 80
)

// Monitor caches resource snapshots from a Sampler and answers admission
// and sizing questions against a set of Limits. Safe for concurrent use.
//
// No Monitor method ever returns an error: a failed sample is logged, the
// unknown snapshot is served, and admission denies until sampling recovers.
// Raising here would cascade into blocking all future admissions.
type Monitor struct {
	sampler Sampler
	limits  Limits
	refresh time.Duration
	stat    stats.StatsReceiver

	mu     sync.Mutex
	cached Metrics
}

// NewMonitor returns a Monitor serving snapshots no staler than refresh.
// A refresh of 0 samples on every read.
func NewMonitor(sampler Sampler, limits Limits, refresh time.Duration, stat stats.StatsReceiver) *Monitor {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &Monitor{
		sampler: sampler,
		limits:  limits,
		refresh: refresh,
		stat:    stat.Scope("monitor"),
	}
}

// CurrentMetrics returns the latest snapshot, sampling anew when the cached
// one has aged out of the refresh window. Reads within the window may be
// slightly stale, which admission accepts.
func (m *Monitor) CurrentMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refresh > 0 && !m.cached.SampledAt.IsZero() && time.Since(m.cached.SampledAt) < m.refresh {
		return m.cached
	}
	return m.sampleLocked()
}

// Refresh samples immediately, bypassing the refresh window.
func (m *Monitor) Refresh() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleLocked()
}

func (m *Monitor) sampleLocked() Metrics {
	metrics, err := m.sampler.Sample()
	if err != nil {
		log.Errorf("Resource sampling failed, serving unknown metrics: %v", err)
		m.stat.Counter(stats.MonitorSampleErrCounter).Inc(1)
		m.cached = UnknownMetrics()
		return m.cached
	}
	m.cached = metrics
	m.stat.Gauge(stats.MonitorRAMPctGauge).Update(int64(metrics.RAMPercent))
	m.stat.Gauge(stats.MonitorCPUPctGauge).Update(int64(metrics.CPUPercent))
	m.stat.Gauge(stats.MonitorRAMFreeGauge).Update(int64(metrics.RAMAvailable))
	return m.cached
}

// CanStartJob decides whether a job of type t may start now.
//
// Checks run in a fixed order: unknown metrics deny, then critical RAM,
// then t's minimum free RAM, then critical CPU. Global memory exhaustion
// gates everything before job-type checks. On deny, reason names the
// violated resource. On allow, reason carries a warning when usage is above
// a warning threshold, "" when the host is fully healthy.
func (m *Monitor) CanStartJob(t JobType) (bool, string) {
	metrics := m.CurrentMetrics()

	if metrics.Unknown {
		return false, m.deny(t, "resource metrics unavailable")
	}
	if metrics.RAMPercent >= m.limits.RAMCriticalPct {
		return false, m.deny(t, fmt.Sprintf("RAM usage critical: %.1f%% >= %.1f%%",
			metrics.RAMPercent, m.limits.RAMCriticalPct))
	}
	if minFree := m.limits.minFreeFor(t); metrics.RAMAvailable < minFree {
		return false, m.deny(t, fmt.Sprintf("insufficient free RAM for %s job: %d bytes available, %d required",
			t, metrics.RAMAvailable, minFree))
	}
	if metrics.CPUPercent >= m.limits.CPUCriticalPct {
		return false, m.deny(t, fmt.Sprintf("CPU usage critical: %.1f%% >= %.1f%%",
			metrics.CPUPercent, m.limits.CPUCriticalPct))
	}

	var warns []string
	if metrics.RAMPercent >= m.limits.RAMWarningPct {
		warns = append(warns, fmt.Sprintf("RAM usage high: %.1f%%", metrics.RAMPercent))
	}
	if metrics.CPUPercent >= m.limits.CPUWarningPct {
		warns = append(warns, fmt.Sprintf("CPU usage high: %.1f%%", metrics.CPUPercent))
	}
	if len(warns) > 0 {
		warning := strings.Join(warns, "; ")
		log.Warnf("Admitting %s job under pressure: %s", t, warning)
		m.stat.Counter(stats.MonitorAdmitWarnCounter).Inc(1)
		return true, warning
	}
	m.stat.Counter(stats.MonitorAdmitOkCounter).Inc(1)
	return true, ""
}

func (m *Monitor) deny(t JobType, reason string) string {
	log.Infof("Denying %s job: %s", t, reason)
	m.stat.Counter(stats.MonitorAdmitDeniedCounter).Inc(1)
	return reason
}

// OptimalPoolSize recommends a worker pool size for current load: CPU
// count, halved when CPU is above 70%, halved again when RAM is above 80%,
// clamped to [1, CPU count]. Unknown metrics recommend 1.
func (m *Monitor) OptimalPoolSize() int {
	metrics := m.CurrentMetrics()
	if metrics.Unknown || metrics.CPUCount < 1 {
		return 1
	}
	size := metrics.CPUCount
	if metrics.CPUPercent > poolSizeCPUPct {
		size /= 2
	}
	if metrics.RAMPercent > poolSizeRAMPct {
		size /= 2
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Health classifies the current snapshot against the warning and critical
// thresholds.
func (m *Monitor) Health() HealthState {
	return classify(m.CurrentMetrics(), m.limits)
}
