package monitor

// JobType keys a job to its resource requirements in Limits.MinFreeRAM.
// Unknown values fall back to the JobTypeDefault entry.
type JobType string

const (
	JobTypeAnalysis  JobType = "analysis"
	JobTypeInference JobType = "inference"
	JobTypeNetwork   JobType = "network"
	JobTypeIO        JobType = "io"
	JobTypeDefault   JobType = "default"
)

// Limits configures the admission thresholds. Read-only after construction.
//
// The warning thresholds are advisory: crossing one classifies the host as
// Warning and annotates admitted jobs, but never denies. The critical
// thresholds deny admission.
type Limits struct {
	RAMWarningPct  float64
	RAMCriticalPct float64
	CPUWarningPct  float64
	CPUCriticalPct float64

	// MinFreeRAM is the minimum available RAM in bytes required to admit a
	// job of a given type. Types without an entry use JobTypeDefault's.
	MinFreeRAM map[JobType]uint64
}

// DefaultLimits returns the thresholds used when no configuration is given.
func DefaultLimits() Limits {
	return Limits{
		RAMWarningPct:  75,
		RAMCriticalPct: 85,
		CPUWarningPct:  75,
		CPUCriticalPct: 90,
		MinFreeRAM: map[JobType]uint64{
			JobTypeAnalysis:  512 * 1024 * 1024,
			JobTypeInference: 1024 * 1024 * 1024,
			JobTypeNetwork:   64 * 1024 * 1024,
			JobTypeIO:        128 * 1024 * 1024,
			JobTypeDefault:   256 * 1024 * 1024,
		},
	}
}

func (l *Limits) minFreeFor(t JobType) uint64 {
	if min, ok := l.MinFreeRAM[t]; ok {
		return min
	}
	return l.MinFreeRAM[JobTypeDefault]
}
