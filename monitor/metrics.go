// Package monitor samples system RAM/CPU and decides whether new jobs may
// start. It provides admission control (CanStartJob), pool sizing advice
// (OptimalPoolSize), and a Watcher that emits edge-triggered health
// transition events on a fixed interval.
package monitor

import "time"

// Metrics is an immutable snapshot of system resource usage. Snapshots are
// recomputed on demand or on the watcher interval and never persisted.
type Metrics struct {
	// RAM utilization in percent of total.
	RAMPercent float64
	// Bytes of RAM available for new work.
	RAMAvailable uint64
	// Bytes of RAM in use.
	RAMUsed uint64
	// Total bytes of RAM.
	RAMTotal uint64
	// CPU utilization in percent across all cores.
	CPUPercent float64
	// Number of logical CPUs.
	CPUCount int
	// Unknown is set when sampling failed and the snapshot carries no real
	// data. Admission treats unknown metrics as deny.
	Unknown   bool
	SampledAt time.Time
}

// UnknownMetrics is the conservative snapshot served when sampling fails.
// Failing toward deny beats failing toward a crash or an unchecked admit.
func UnknownMetrics() Metrics {
	return Metrics{Unknown: true, SampledAt: time.Now()}
}
