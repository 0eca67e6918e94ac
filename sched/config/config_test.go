package config_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/sched"
	"github.com/gantrylabs/gantry/sched/config"
	"github.com/gantrylabs/gantry/worker"
	"github.com/gantrylabs/gantry/worker/workers"
)

func TestConfigRoundtrip(t *testing.T) {
	before := `{
 "Monitor": {
  "Type": "static",
  "RAMPercent": 25,
  "RAMAvailableMb": 6144,
  "RAMTotalMb": 8192,
  "CPUPercent": 10,
  "CPUCount": 8,
  "RAMWarningPct": 80,
  "RAMCriticalPct": 90,
  "CPUWarningPct": 75,
  "CPUCriticalPct": 95,
  "MinFreeRAMMb": {
   "analysis": 512,
   "inference": 1024
  }
 },
 "Pool": {
  "Type": "static",
  "Size": 4
 },
 "Queue": {
  "Type": "memory",
  "Capacity": 500,
  "DispatchIntervalMs": 100,
  "ShutdownGraceMs": 5000
 },
 "Stats": {
  "Type": "default",
  "LatchMs": 15000
 }
}`

	p := config.DefaultParser()
	cfg, err := p.Parse([]byte(before))
	if err != nil {
		t.Fatalf("Error parsing before: %v", err)
	}

	bytes, err := json.MarshalIndent(&cfg, "", " ")
	if err != nil {
		t.Fatalf("Error encoding Config to json: %v.", err)
	}
	after := string(bytes)
	if before != after {
		t.Fatalf("Error converting back to json, before/after:\n^%v$\n#####\n^%v$", before, after)
	}
}

func TestDefaultJSON(t *testing.T) {
	p := config.DefaultParser()
	data, err := p.DefaultJSON()
	if err != nil {
		t.Fatalf("Error generating default JSON: %v", err)
	}
	if !strings.Contains(string(data), `"system"`) {
		t.Fatalf("Default config should use the system monitor: %s", data)
	}
	if _, err := p.Parse(data); err != nil {
		t.Fatalf("Default JSON does not parse back: %v", err)
	}
}

func TestUnknownTypeErrors(t *testing.T) {
	p := config.DefaultParser()
	_, err := p.Parse([]byte(`{"Pool": {"Type": "elastic"}}`))
	if err == nil {
		t.Fatalf("Expected an error for an unknown pool type")
	}
	if !strings.Contains(err.Error(), "No parser for pool type elastic") {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// Creates a full system from JSON and runs one job through it.
func TestCreateFromJSON(t *testing.T) {
	text := `{
 "Monitor": {"Type": "static", "RAMPercent": 25, "RAMAvailableMb": 6144, "RAMTotalMb": 8192, "CPUPercent": 10, "CPUCount": 8},
 "Pool": {"Type": "static", "Size": 2},
 "Queue": {"Type": "memory", "Capacity": 10, "DispatchIntervalMs": 20, "ShutdownGraceMs": 5000},
 "Stats": {"Type": "nil"}
}`

	sys, err := config.DefaultParser().Create([]byte(text), nil)
	if err != nil {
		t.Fatalf("Error creating system: %v", err)
	}
	defer sys.Scheduler.Shutdown(true)

	if sys.Monitor.Health() != monitor.Healthy {
		t.Fatalf("Static monitor should be healthy, got %v", sys.Monitor.Health())
	}

	def := sched.JobDefinition{
		Worker:   workers.NewSimWorker("complete 0"),
		Type:     monitor.JobTypeAnalysis,
		Priority: sched.Normal,
	}
	id, err := sys.Scheduler.SubmitJob(def)
	if err != nil {
		t.Fatalf("Error submitting job: %v", err)
	}
	st, err := sys.Scheduler.WaitForStatus(id, worker.DONE_MASK, worker.Wait{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Job %v never finished: %v", id, err)
	}
	if st.State != worker.COMPLETE {
		t.Fatalf("Expected COMPLETE, got %v", st.State)
	}
}
