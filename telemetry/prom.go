package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics is a Metrics implementation backed by
// github.com/prometheus/client_golang, grounded in rcourtman-Pulse's
// AIMetrics: CounterVec/GaugeVec (timers included, see gaugeVec) registered lazily per metric name
// rather than declared up front, since the core's call sites name metrics
// like "dispatch.latency_ms" and "source.dedup_hits" by string rather than
// by a fixed struct field.
type PromMetrics struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.GaugeVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPromMetrics constructs a Metrics recorder that registers its vectors
// against reg. Pass prometheus.DefaultRegisterer to expose them on the
// default /metrics handler (promhttp.Handler()).
func NewPromMetrics(reg prometheus.Registerer) Metrics {
	return &PromMetrics{
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.GaugeVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

func tagKeys(tags []string) []string {
	keys := make([]string, 0, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		keys = append(keys, tags[i])
	}
	return keys
}

func tagValues(tags []string) prometheus.Labels {
	labels := make(prometheus.Labels, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		labels[tags[i]] = v
	}
	return labels
}

func (m *PromMetrics) counterVec(name string, tags []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricName(name),
			Help: name + " counter",
		}, tagKeys(tags))
		m.registerer.MustRegister(vec)
		m.counters[name] = vec
	}
	return vec
}

// RecordTimer and RecordGauge both use GaugeVec: OTEL-style histograms need
// fixed bucket boundaries decided up front, which the core's string-named
// call sites don't supply, so a gauge tracking the latest observation is
// the grounded fallback (mirrors ClueMetrics.RecordGauge's own histogram
// fallback note).
func (m *PromMetrics) gaugeVec(store map[string]*prometheus.GaugeVec, name string, tags []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := store[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricName(name),
			Help: name + " gauge",
		}, tagKeys(tags))
		m.registerer.MustRegister(vec)
		store[name] = vec
	}
	return vec
}

// IncCounter implements Metrics.
func (m *PromMetrics) IncCounter(name string, value float64, tags ...string) {
	m.counterVec(name, tags).With(tagValues(tags)).Add(value)
}

// RecordTimer implements Metrics, recording duration in milliseconds.
func (m *PromMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	m.gaugeVec(m.histograms, name+"_ms", tags).With(tagValues(tags)).Set(float64(duration.Milliseconds()))
}

// RecordGauge implements Metrics.
func (m *PromMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.gaugeVec(m.gauges, name, tags).With(tagValues(tags)).Set(value)
}

// metricName sanitizes a dotted metric name ("dispatch.latency") into the
// underscore form Prometheus expects ("pipeline_dispatch_latency").
func metricName(name string) string {
	out := make([]byte, 0, len(name)+8)
	out = append(out, "pipeline_"...)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '.' || c == '-' || c == ' ' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
