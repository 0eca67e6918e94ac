// Package stats provides a small set of instrument interfaces backed by
// go-metrics, so that the rest of the codebase never imports the metrics
// library directly. On top of plain go-metrics it adds:
//
// - A StatsReceiver that can be passed down a call tree and scoped per level.
// - A display precision for latency instruments, settable per receiver.
// - A latched mode that captures registry snapshots on a fixed interval.
// - A percentile-style JSON rendering of histograms and latencies.
//
// Original license: github.com/rcrowley/go-metrics/blob/master/LICENSE
package stats

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

// For testing.
var Time StatsTime = DefaultStatsTime()

var StatReportIntvl time.Duration = 500 * time.Millisecond
var DefaultStartupGaugeSpikeLen time.Duration = 1 * time.Minute

// To check if pretty printing is supported.
type MarshalerPretty interface {
	MarshalJSONPretty() ([]byte, error)
}

// Similar to the go-metrics registry but with most methods removed.
//
// Note: the plain go-metrics registry doesn't understand the Latency
// instrument; only the percentile registry checks for and marshals it.
type StatsRegistry interface {
	// Gets an existing metric or registers the given one.
	// The interface can be the metric to register if not found in registry,
	// or a function returning the metric for lazy instantiation.
	GetOrRegister(string, interface{}) interface{}

	// Unregister the metric with the given name.
	Unregister(string)

	// Call the given function for each registered metric.
	Each(func(string, interface{}))
}

// A scoped sink for instruments.
//
// Hierarchical names use a '/' separator. To avoid confusion, variadic name
// elements have '/' characters replaced by "_SLASH_" before use. Stripping
// beats failing here because names are sometimes built dynamically (from
// error strings for example).
type StatsReceiver interface {
	// Return a stats receiver that will automatically namespace elements with
	// the given scope args.
	//
	//   statsReceiver.Scope("foo", "bar").Counter("baz")  // is equivalent to
	//   statsReceiver.Counter("foo", "bar", "baz")
	//
	Scope(scope ...string) StatsReceiver

	// Returns a copy whose Latency instruments will use the given precision
	// as their display precision when rendered as JSON. For example:
	//
	//   statsReceiver.Precision(time.Millisecond).Latency("foo_ms")
	//
	// displays the nanosecond data points of 'foo_ms' as milliseconds. This
	// does not affect the captured data, only its display. Durations <= 1ns
	// default to ns.
	Precision(time.Duration) StatsReceiver

	// Provides an event counter.
	Counter(name ...string) Counter

	// Provides a histogram of sampled durations. Output is in nanoseconds
	// by default, adjustable via Precision().
	Latency(name ...string) Latency

	// Provides a gauge holding an arbitrarily settable int64.
	Gauge(name ...string) Gauge

	// Provides a gauge holding an arbitrarily settable float64.
	GaugeFloat(name ...string) GaugeFloat

	// Provides a histogram of sampled int64 values.
	Histogram(name ...string) Histogram

	// Removes the given named stats item if it exists.
	Remove(name ...string)

	// Construct a JSON string by marshaling the registry.
	Render(pretty bool) []byte
}

// A StatsReceiver over a percentile registry with latching disabled, so
// instruments are reset on every call to Render().
func DefaultStatsReceiver() StatsReceiver {
	stat, _ := NewCustomStatsReceiver(nil, 0)
	return stat
}

// Like DefaultStatsReceiver() but with an explicit latch interval. Starts a
// goroutine that periodically captures all and clears select instruments.
// Note: a latch <=0 disables latching so rendering/resetting is on demand.
// Note: it is up to the main app to prevent calls to Render() after cancel.
func NewLatchedStatsReceiver(latched time.Duration) (stat StatsReceiver, cancelFn func()) {
	return NewCustomStatsReceiver(nil, latched)
}

// Like DefaultStatsReceiver() but registry and latch interval are explicit.
func NewCustomStatsReceiver(makeRegistry func() StatsRegistry, latched time.Duration) (stat StatsReceiver, cancelFn func()) {
	if makeRegistry == nil {
		makeRegistry = NewPercentileStatsRegistry
	}
	defaultStat := &defaultStatsReceiver{
		makeRegistry: makeRegistry,
		registry:     makeRegistry(),
		precision:    time.Nanosecond,
	}
	cancel := func() {}
	if latched > 0 {
		var ctx context.Context
		defaultStat.latchCh = make(chan chan capturedRegistry)
		ctx, cancel = context.WithCancel(context.Background())
		firstSnapshotAt := Time.Now().Add(latched).Truncate(latched)
		firstCaptured := capture(defaultStat.registry, makeRegistry())
		go latch(
			defaultStat, firstCaptured, defaultStat.latchCh,
			Time.NewTicker(latched), firstSnapshotAt, ctx)
	}
	return defaultStat, cancel
}

// Ignores all stats operations.
func NilStatsReceiver(scope ...string) StatsReceiver {
	return &nilStatsReceiver{}
}

type capturedRegistry struct {
	captured StatsRegistry
	time     time.Time
}

// Called as a goroutine by the stats constructor. Loops until ctx is
// canceled, capturing a registry snapshot once per tick and serving the
// latest snapshot to Render() requests.
func latch(stat *defaultStatsReceiver, captured StatsRegistry, latchCh chan chan capturedRegistry,
	ticker StatsTicker, firstSnapshotAt time.Time, ctx context.Context,
) {
	captureTime := Time.Now()
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return
		case t := <-ticker.C():
			if t.Before(firstSnapshotAt) {
				break
			}
			captured = capture(stat.registry, stat.makeRegistry())
			captureTime = t
			clear(stat.registry)
		case req := <-latchCh:
			req <- capturedRegistry{captured, captureTime}
		}
	}
}

// Writes a registry copy to 'captured' and returns that copy. Called by latch().
func capture(src StatsRegistry, captured StatsRegistry) StatsRegistry {
	src.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case Counter:
			captured.GetOrRegister(name, m.Capture())
		case Gauge:
			captured.GetOrRegister(name, m.Capture())
		case GaugeFloat:
			captured.GetOrRegister(name, m.Capture())
		case Histogram:
			captured.GetOrRegister(name, m.Capture())
		case Latency:
			captured.GetOrRegister(name, m.Capture())
		default:
			log.Info("Unrecognized capture instrument: ", name, i)
		}
	})
	return captured
}

// Sends a capture request to the latch goroutine and returns the snapshot.
func requestCapture(latchCh chan chan capturedRegistry) capturedRegistry {
	resultCh := make(chan capturedRegistry)
	latchCh <- resultCh
	return <-resultCh
}

// Selectively clear the specified registry.
func clear(reg StatsRegistry) {
	reg.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Histogram:
			m.Clear()
		}
	})
}

type defaultStatsReceiver struct {
	makeRegistry func() StatsRegistry
	registry     StatsRegistry
	latchCh      chan chan capturedRegistry
	precision    time.Duration
	scope        []string
}

func (s *defaultStatsReceiver) Scope(scope ...string) StatsReceiver {
	return &defaultStatsReceiver{s.makeRegistry, s.registry, s.latchCh, s.precision, s.scoped(scope...)}
}

func (s *defaultStatsReceiver) Precision(precision time.Duration) StatsReceiver {
	if precision < 1 {
		precision = 1
	}
	return &defaultStatsReceiver{s.makeRegistry, s.registry, s.latchCh, precision, s.scope}
}

func (s *defaultStatsReceiver) Counter(name ...string) Counter {
	return s.registry.GetOrRegister(s.scopedName(name...), NewCounter).(Counter)
}

func (s *defaultStatsReceiver) Gauge(name ...string) Gauge {
	return s.registry.GetOrRegister(s.scopedName(name...), NewGauge).(Gauge)
}

func (s *defaultStatsReceiver) GaugeFloat(name ...string) GaugeFloat {
	return s.registry.GetOrRegister(s.scopedName(name...), NewGaugeFloat).(GaugeFloat)
}

func (s *defaultStatsReceiver) Histogram(name ...string) Histogram {
	return s.registry.GetOrRegister(s.scopedName(name...), NewHistogram).(Histogram)
}

func (s *defaultStatsReceiver) Latency(name ...string) Latency {
	// Can't do lazy instantiation since a metrics.Registry can't cast a
	// factory return value.
	return s.registry.GetOrRegister(s.scopedName(name...), NewLatency().Precision(s.precision)).(Latency)
}

func (s *defaultStatsReceiver) Remove(name ...string) {
	s.registry.Unregister(s.scopedName(name...))
}

func (s *defaultStatsReceiver) Render(pretty bool) []byte {
	reg := s.registry
	if s.latchCh != nil {
		reg = requestCapture(s.latchCh).captured
	}

	var err error
	var bytes []byte
	if mp, ok := reg.(MarshalerPretty); ok && pretty {
		bytes, err = mp.MarshalJSONPretty()
	} else {
		bytes, err = json.Marshal(reg)
	}

	if err != nil {
		panic("StatsRegistry bug, cannot be marshaled")
	}
	if s.latchCh == nil {
		clear(s.registry) // reset on every call to render when not latched.
	}
	return bytes
}

// Append to existing scope and scrub slashes.
func (s *defaultStatsReceiver) scoped(scope ...string) []string {
	for i, sc := range scope {
		scope[i] = strings.Replace(sc, "/", "_SLASH_", -1)
	}
	return append(s.scope[:], scope...)
}

// Append to the existing scope and convert to a slash-delimited string.
func (s *defaultStatsReceiver) scopedName(scope ...string) string {
	return strings.Join(s.scoped(scope...), "/")
}

type nilStatsReceiver struct{}

func (s *nilStatsReceiver) Scope(scope ...string) StatsReceiver             { return s }
func (s *nilStatsReceiver) Precision(precision time.Duration) StatsReceiver { return s }
func (s *nilStatsReceiver) Counter(name ...string) Counter {
	return &metricCounter{&metrics.NilCounter{}}
}
func (s *nilStatsReceiver) Gauge(name ...string) Gauge {
	return &metricGauge{&metrics.NilGauge{}}
}
func (s *nilStatsReceiver) GaugeFloat(name ...string) GaugeFloat {
	return &metricGaugeFloat{&metrics.NilGaugeFloat64{}}
}
func (s *nilStatsReceiver) Histogram(name ...string) Histogram {
	return &metricHistogram{&metrics.NilHistogram{}}
}
func (s *nilStatsReceiver) Latency(name ...string) Latency { return newNilLatency() }
func (s *nilStatsReceiver) Remove(name ...string)          {}
func (s *nilStatsReceiver) Render(pretty bool) []byte      { return []byte{} }

// Reports a spiked gauge at startup then keeps an uptime gauge current.
// Blocks; callers run it as a goroutine.
func StartUptimeReporting(stat StatsReceiver, statName string, serverStartGaugeName string, startupGaugeSpikeLen time.Duration) {
	ReportServerRestart(stat, serverStartGaugeName, startupGaugeSpikeLen)
	startTime := time.Now()
	ticker := time.NewTicker(StatReportIntvl)
	for {
		select {
		case <-ticker.C:
			upTime := time.Now().Sub(startTime) / time.Millisecond
			stat.Gauge(statName).Update(int64(upTime))
		}
	}
}

// Spikes a restart gauge to 1 for the given duration so restarts stand out
// in dashboards, then drops it back to 0.
func ReportServerRestart(stat StatsReceiver, statName string, startupGaugeSpikeLen time.Duration) {
	stat.Gauge(statName).Update(int64(1))
	go func() {
		time.Sleep(startupGaugeSpikeLen)
		stat.Gauge(statName).Update(0)
	}()
}
