package monitor

import (
	"sync"
	"time"
)

// Sampler produces resource snapshots. Implementations must be safe for
// concurrent use.
type Sampler interface {
	Sample() (Metrics, error)
}

// StaticSampler serves a fixed, settable Metrics value. Tests and demos use
// it to script resource conditions; deployments that measure resources
// elsewhere can feed readings through Set.
type StaticSampler struct {
	mu  sync.Mutex
	m   Metrics
	err error
}

func NewStaticSampler(m Metrics) *StaticSampler {
	return &StaticSampler{m: m}
}

// Set replaces the metrics served by subsequent Sample calls.
func (s *StaticSampler) Set(m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = m
	s.err = nil
}

// SetErr makes subsequent Sample calls fail with err until Set is called.
func (s *StaticSampler) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticSampler) Sample() (Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Metrics{}, s.err
	}
	m := s.m
	m.SampledAt = time.Now()
	return m, nil
}
