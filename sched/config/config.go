// Package config assembles a running Gantry system from JSON.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/gantrylabs/gantry/common/stats"
	"github.com/gantrylabs/gantry/monitor"
	"github.com/gantrylabs/gantry/sched/scheduler"
)

// Config is the top-level configuration. It defines how to create each
// configurable dependency and wires them into a System.
type Config struct {
	Monitor MonitorConfig
	Pool    PoolConfig
	Queue   QueueConfig
	Stats   StatsConfig
}

// System is the created object graph.
type System struct {
	Stat      stats.StatsReceiver
	Monitor   *monitor.Monitor
	Scheduler *scheduler.JobScheduler
}

// Create creates the configured system (or returns an error describing
// why it couldn't). The listener may be nil.
func (c *Config) Create(listener scheduler.Listener) (*System, error) {
	stat, err := c.Stats.Create()
	if err != nil {
		return nil, err
	}

	mon, err := c.Monitor.Create(stat)
	if err != nil {
		return nil, err
	}

	poolSize, err := c.Pool.Create()
	if err != nil {
		return nil, err
	}

	schedCfg, err := c.Queue.Create()
	if err != nil {
		return nil, err
	}
	schedCfg.PoolSize = poolSize

	js := scheduler.NewJobScheduler(mon, schedCfg, listener, stat)
	return &System{Stat: stat, Monitor: mon, Scheduler: js}, nil
}

type MonitorConfig interface {
	Create(stat stats.StatsReceiver) (*monitor.Monitor, error)
}

// PoolConfig yields the pool width; 0 means size from the monitor.
type PoolConfig interface {
	Create() (int, error)
}

type QueueConfig interface {
	Create() (scheduler.SchedulerConfig, error)
}

type StatsConfig interface {
	Create() (stats.StatsReceiver, error)
}

// Config parsed from JSON. Each section should parse into an empty
// string or a JSON object with a "Type" field which picks the kind of
// config to parse it as.
type topLevelConfig struct {
	Monitor json.RawMessage
	Pool    json.RawMessage
	Queue   json.RawMessage
	Stats   json.RawMessage
}

type typeConfig struct {
	Type string
}

var emptyJson = []byte("{}")

func parseType(data json.RawMessage) (string, []byte) {
	if len(data) == 0 {
		return "", emptyJson
	}

	var t typeConfig
	err := json.Unmarshal(data, &t)
	if err != nil {
		return "", emptyJson
	}
	return t.Type, data
}

// Parser holds how to parse our configs. For each configurable
// dependency, it holds options for how to parse it. It looks at the
// "Type" field in the config and looks that up in the map. (If the
// section is not present in the JSON, it looks up the empty string. To
// set a default, set Parser.Foo[""] = &FooBarConfig{Type: "bar"}.)
type Parser struct {
	Monitor map[string]MonitorConfig
	Pool    map[string]PoolConfig
	Queue   map[string]QueueConfig
	Stats   map[string]StatsConfig
}

// Create parses and creates in one step.
func (p *Parser) Create(configText []byte, listener scheduler.Listener) (*System, error) {
	c, err := p.Parse(configText)
	if err != nil {
		return nil, err
	}
	return c.Create(listener)
}

// DefaultJSON generates the JSON config that results from the empty
// string; useful for showing a complete configuration.
func (p *Parser) DefaultJSON() ([]byte, error) {
	i, err := p.Parse(nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(i)
}

func (p *Parser) Parse(configText []byte) (*Config, error) {
	if len(configText) == 0 {
		configText = emptyJson
	}
	var cfg topLevelConfig
	err := json.Unmarshal(configText, &cfg)
	if err != nil {
		return nil, fmt.Errorf("Couldn't Parse top-level config: %v", err)
	}

	r := &Config{}

	// For each section: parse its type, find the config for that type,
	// unmarshal into it, set it in the result.

	monitorType, monitorData := parseType(cfg.Monitor)
	monitorConfig, ok := p.Monitor[monitorType]
	if !ok {
		return nil, fmt.Errorf("No parser for monitor type %s", monitorType)
	}
	err = json.Unmarshal(monitorData, &monitorConfig)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse Monitor: %v (config: %s; type: %s)", err, monitorData, monitorType)
	}
	r.Monitor = monitorConfig

	poolType, poolData := parseType(cfg.Pool)
	poolConfig, ok := p.Pool[poolType]
	if !ok {
		return nil, fmt.Errorf("No parser for pool type %s", poolType)
	}
	err = json.Unmarshal(poolData, &poolConfig)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse Pool: %v (config: %s; type: %s)", err, poolData, poolType)
	}
	r.Pool = poolConfig

	queueType, queueData := parseType(cfg.Queue)
	queueConfig, ok := p.Queue[queueType]
	if !ok {
		return nil, fmt.Errorf("No parser for queue type %s", queueType)
	}
	err = json.Unmarshal(queueData, &queueConfig)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse Queue: %v (config: %s; type: %s)", err, queueData, queueType)
	}
	r.Queue = queueConfig

	statsType, statsData := parseType(cfg.Stats)
	statsConfig, ok := p.Stats[statsType]
	if !ok {
		return nil, fmt.Errorf("No parser for stats type %s", statsType)
	}
	err = json.Unmarshal(statsData, &statsConfig)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse Stats: %v (config: %s; type: %s)", err, statsData, statsType)
	}
	r.Stats = statsConfig

	return r, nil
}
