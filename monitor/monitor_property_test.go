// +build property_test

package monitor

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func Test_CanStartJobCriticalRAM(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("ram at or above critical denies every job type", prop.ForAll(
		func(m Metrics, critPct float64, jobType JobType) bool {
			if m.RAMPercent < critPct {
				m.RAMPercent = critPct
			}
			limits := DefaultLimits()
			limits.RAMCriticalPct = critPct
			mon := NewMonitor(NewStaticSampler(m), limits, 0, nil)
			ok, reason := mon.CanStartJob(jobType)
			return !ok && reason != ""
		},
		GenMetrics(),
		gen.Float64Range(1, 100),
		GenJobType(),
	))
	properties.TestingRun(t)
}

func Test_OptimalPoolSizeBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("pool size stays within [1, cpu count]", prop.ForAll(
		func(m Metrics) bool {
			mon := NewMonitor(NewStaticSampler(m), DefaultLimits(), 0, nil)
			size := mon.OptimalPoolSize()
			return size >= 1 && size <= m.CPUCount
		},
		GenMetrics(),
	))
	properties.TestingRun(t)
}

func Test_ClassifyNeverBelowAdmission(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("a healthy classification implies admission is possible for some type", prop.ForAll(
		func(m Metrics) bool {
			limits := DefaultLimits()
			mon := NewMonitor(NewStaticSampler(m), limits, 0, nil)
			if mon.Health() != Healthy {
				return true
			}
			// healthy means neither metric is at a critical threshold, so
			// only a per-type free RAM floor may deny
			ok, _ := mon.CanStartJob(JobTypeNetwork)
			return ok || m.RAMAvailable < limits.MinFreeRAM[JobTypeNetwork]
		},
		GenMetrics(),
	))
	properties.TestingRun(t)
}
