package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/gantrylabs/gantry/common/stats"
	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/sched/scheduler"
)

func DefaultParser() *Parser {
	r := &Parser{
		Monitor: map[string]MonitorConfig{
			"system": &SystemMonitorConfig{},
			"static": &StaticMonitorConfig{},
			"":       &SystemMonitorConfig{Type: "system", RefreshMs: 1000},
		},
		Pool: map[string]PoolConfig{
			"static": &StaticPoolConfig{},
			"auto":   &AutoPoolConfig{},
			"":       &AutoPoolConfig{Type: "auto"},
		},
		Queue: map[string]QueueConfig{
			"memory": &MemoryQueueConfig{},
			"": &MemoryQueueConfig{
				Type:               "memory",
				Capacity:           1000,
				DispatchIntervalMs: 250,
				ShutdownGraceMs:    30000,
			},
		},
		Stats: map[string]StatsConfig{
			"default": &DefaultStatsConfig{},
			"nil":     &NilStatsConfig{},
			"":        &DefaultStatsConfig{Type: "default", LatchMs: 15000},
		},
	}
	return r
}

// LimitsConfig holds the admission thresholds shared by the monitor
// configs. Zero fields keep the monitor's defaults; MinFreeRAMMb
// entries override per job type.
type LimitsConfig struct {
	RAMWarningPct  float64
	RAMCriticalPct float64
	CPUWarningPct  float64
	CPUCriticalPct float64
	MinFreeRAMMb   map[string]int
}

func (c *LimitsConfig) limits() monitor.Limits {
	l := monitor.DefaultLimits()
	if c.RAMWarningPct > 0 {
		l.RAMWarningPct = c.RAMWarningPct
	}
	if c.RAMCriticalPct > 0 {
		l.RAMCriticalPct = c.RAMCriticalPct
	}
	if c.CPUWarningPct > 0 {
		l.CPUWarningPct = c.CPUWarningPct
	}
	if c.CPUCriticalPct > 0 {
		l.CPUCriticalPct = c.CPUCriticalPct
	}
	for t, mb := range c.MinFreeRAMMb {
		l.MinFreeRAM[monitor.JobType(t)] = uint64(mb) << 20
	}
	return l
}

// SystemMonitorConfig samples the host OS every RefreshMs.
type SystemMonitorConfig struct {
	Type      string
	RefreshMs int
	LimitsConfig
}

func (c *SystemMonitorConfig) Create(stat stats.StatsReceiver) (*monitor.Monitor, error) {
	refresh := time.Duration(c.RefreshMs) * time.Millisecond
	if refresh <= 0 {
		refresh = time.Second
	}
	return monitor.NewMonitor(monitor.NewSystemSampler(), c.limits(), refresh, stat), nil
}

// StaticMonitorConfig reports fixed metrics; for tests and demos.
type StaticMonitorConfig struct {
	Type           string
	RAMPercent     float64
	RAMAvailableMb int
	RAMTotalMb     int
	CPUPercent     float64
	CPUCount       int
	LimitsConfig
}

func (c *StaticMonitorConfig) Create(stat stats.StatsReceiver) (*monitor.Monitor, error) {
	total := uint64(c.RAMTotalMb) << 20
	avail := uint64(c.RAMAvailableMb) << 20
	if avail > total {
		return nil, errors.Errorf(
			"static monitor: RAMAvailableMb %d exceeds RAMTotalMb %d", c.RAMAvailableMb, c.RAMTotalMb)
	}
	m := monitor.Metrics{
		RAMPercent:   c.RAMPercent,
		RAMAvailable: avail,
		RAMUsed:      total - avail,
		RAMTotal:     total,
		CPUPercent:   c.CPUPercent,
		CPUCount:     c.CPUCount,
	}
	return monitor.NewMonitor(monitor.NewStaticSampler(m), c.limits(), time.Second, stat), nil
}

// StaticPoolConfig runs a fixed number of jobs at once.
type StaticPoolConfig struct {
	Type string
	Size int
}

func (c *StaticPoolConfig) Create() (int, error) {
	if c.Size < 1 {
		return 0, errors.Errorf("static pool: Size must be >= 1, got %d", c.Size)
	}
	return c.Size, nil
}

// AutoPoolConfig sizes the pool from the monitor's view of the host.
type AutoPoolConfig struct {
	Type string
}

func (c *AutoPoolConfig) Create() (int, error) {
	return 0, nil
}

// MemoryQueueConfig is the in-process job queue.
type MemoryQueueConfig struct {
	Type               string
	Capacity           int
	DispatchIntervalMs int
	ShutdownGraceMs    int
}

func (c *MemoryQueueConfig) Create() (scheduler.SchedulerConfig, error) {
	return scheduler.SchedulerConfig{
		MaxQueueSize:     c.Capacity,
		DispatchInterval: time.Duration(c.DispatchIntervalMs) * time.Millisecond,
		ShutdownGrace:    time.Duration(c.ShutdownGraceMs) * time.Millisecond,
	}, nil
}

// DefaultStatsConfig latches stats every LatchMs; 0 means unlatched.
type DefaultStatsConfig struct {
	Type    string
	LatchMs int
}

func (c *DefaultStatsConfig) Create() (stats.StatsReceiver, error) {
	var stat stats.StatsReceiver
	if c.LatchMs <= 0 {
		stat = stats.DefaultStatsReceiver()
	} else {
		stat, _ = stats.NewCustomStatsReceiver(
			stats.NewPercentileStatsRegistry, time.Duration(c.LatchMs)*time.Millisecond)
	}
	return stat.Precision(time.Millisecond), nil
}

// NilStatsConfig discards all stats.
type NilStatsConfig struct {
	Type string
}

func (c *NilStatsConfig) Create() (stats.StatsReceiver, error) {
	return stats.NilStatsReceiver(), nil
}
