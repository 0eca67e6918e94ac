package monitor

import (
	"time"

	"github.com/leanovate/gopter"
)

//
// Monitor Generators contains Generator methods that are useful
// when doing property based testing
//

// Randomly generates a plausible snapshot: utilization in [0, 100),
// RAM figures consistent with a total of up to 64 GiB.
func genMetrics(genParams *gopter.GenParameters) Metrics {
	total := (genParams.NextUint64()%64 + 1) << 30
	used := genParams.NextUint64() % (total + 1)
	return Metrics{
		RAMPercent:   float64(used) / float64(total) * 100,
		RAMAvailable: total - used,
		RAMUsed:      used,
		RAMTotal:     total,
		CPUPercent:   float64(genParams.NextUint64()%10000) / 100,
		CPUCount:     int(genParams.NextUint64()%64) + 1,
		SampledAt:    time.Now(),
	}
}

// Generator for a plausible resource snapshot
func GenMetrics() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		return gopter.NewGenResult(genMetrics(genParams), gopter.NoShrinker)
	}
}

// Generator for a JobType, including types with no MinFreeRAM entry
func GenJobType() gopter.Gen {
	types := []JobType{
		JobTypeAnalysis, JobTypeInference, JobTypeNetwork, JobTypeIO,
		JobTypeDefault, JobType("unregistered"),
	}
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		t := types[genParams.Rng.Intn(len(types))]
		return gopter.NewGenResult(t, gopter.NoShrinker)
	}
}
