package sched

import (
	"math/rand"
	"time"

	"github.com/leanovate/gopter"

	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/tests/testhelpers"
	"github.com/gantrylabs/gantry/worker/workers"
)

var genJobTypes = []monitor.JobType{
	monitor.JobTypeAnalysis,
	monitor.JobTypeInference,
	monitor.JobTypeNetwork,
	monitor.JobTypeIO,
	monitor.JobTypeDefault,
}

// Generates a random JobDefinition
func GenJobDef() JobDefinition {
	rand := testhelpers.NewRand()
	return GenRandomJobDef(rand)
}

// Generates a random JobDefinition, using the supplied Rand
func GenRandomJobDef(rng *rand.Rand) JobDefinition {
	return JobDefinition{
		Worker:   workers.NewSimWorker("complete 0"),
		Type:     genJobTypes[rng.Intn(len(genJobTypes))],
		Priority: Priority(rng.Intn(NumPriorities)),
		Timeout:  time.Duration(rng.Intn(10)) * time.Second,
	}
}

// Generates a random Job with the specified id, using the supplied Rand
func GenRandomJob(id string, rng *rand.Rand) Job {
	return Job{ID: id, Def: GenRandomJobDef(rng), CreatedAt: time.Now()}
}

// Randomly generates an id that is valid for use as a job id
func GenJobId() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		result := testhelpers.GenRandomAlphaNumericString(genParams.Rng)
		return gopter.NewGenResult(result, gopter.NoShrinker)
	}
}

// Wrapper function generates a JobDefinition for property based tests
func GopterGenJobDef() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		jobDef := GenRandomJobDef(genParams.Rng)
		return gopter.NewGenResult(jobDef, gopter.NoShrinker)
	}
}

// Wrapper function generates a Priority for property based tests
func GopterGenPriority() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		p := Priority(genParams.Rng.Intn(NumPriorities))
		return gopter.NewGenResult(p, gopter.NoShrinker)
	}
}
