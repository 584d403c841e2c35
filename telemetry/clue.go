package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

type (
	// ClueLogger wraps goa.design/clue/log so core components log through
	// the same structured pipeline the rest of this module uses.
	ClueLogger struct{}

	// ClueMetrics wraps OTEL metrics for core instrumentation. Metric names
	// are normalized through the same metricName sanitizer PromMetrics uses
	// (telemetry/prom.go), so a dispatch counter reads "pipeline_dispatch_
	// latency" whichever Metrics implementation a deployment wires in.
	ClueMetrics struct {
		meter metric.Meter
	}

	// ClueTracer wraps OTEL tracing for spans around dispatch, extraction,
	// indexing, and prompt answering.
	ClueTracer struct {
		tracer trace.Tracer
	}

	// clueSpan wraps an OTEL trace span.
	clueSpan struct {
		span trace.Span
	}
)

// NewClueLogger constructs a Logger that delegates to goa.design/clue/log.
// The logger reads formatting and debug settings from the context (set via
// log.Context and log.WithFormat/log.WithDebug).
func NewClueLogger() Logger {
	return ClueLogger{}
}

// NewClueMetrics constructs a Metrics recorder that delegates to OTEL
// metrics. Uses the global MeterProvider; configure it via
// otel.SetMeterProvider before invoking core methods.
func NewClueMetrics() Metrics {
	meter := otel.Meter("github.com/veridoc/pipeline")
	return &ClueMetrics{meter: meter}
}

// NewClueTracer constructs a Tracer that delegates to OTEL tracing. Uses the
// global TracerProvider; configure it via otel.SetTracerProvider or
// OTEL_EXPORTER_OTLP_ENDPOINT.
func NewClueTracer() Tracer {
	tracer := otel.Tracer("github.com/veridoc/pipeline")
	return &ClueTracer{tracer: tracer}
}

// fields builds the common log.Fielder prefix ("msg" plus the caller's
// key-value pairs) every severity below shares.
func fields(msg string, keyvals []any) []log.Fielder {
	return append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)
}

// Debug emits a debug-level log message with structured key-value pairs.
func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, fields(msg, keyvals)...)
}

// Info emits an info-level log message with structured key-value pairs.
func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, fields(msg, keyvals)...)
}

// Warn emits a warning-level log message with structured key-value pairs.
func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	log.Warn(ctx, append(fields(msg, keyvals), log.KV{K: "severity", V: "warning"})...)
}

// Error emits an error-level log message with structured key-value pairs.
func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, fields(msg, keyvals)...)
}

// IncCounter increments a counter metric by the given value.
func (m *ClueMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.meter.Float64Counter(metricName(name))
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordTimer records a duration histogram/timer metric, in milliseconds to
// match PromMetrics.RecordTimer's unit.
func (m *ClueMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	histogram, err := m.meter.Float64Histogram(metricName(name) + "_ms")
	if err != nil {
		return
	}
	histogram.Record(context.Background(), float64(duration.Milliseconds()), metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordGauge records a gauge metric value. OTEL has no synchronous gauge
// type; a histogram suffixed "_gauge" is used as the fallback, mirroring
// PromMetrics' own gauge-via-GaugeVec fallback.
func (m *ClueMetrics) RecordGauge(name string, value float64, tags ...string) {
	histogram, err := m.meter.Float64Histogram(metricName(name) + "_gauge")
	if err != nil {
		return
	}
	histogram.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

// Start creates a new span with the given name and options.
func (t *ClueTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &clueSpan{span: span}
}

func (s *clueSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *clueSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(kvSliceToAttrs(attrs)...))
}

func (s *clueSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *clueSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// kv is one normalized (key, value) pair parsed out of a variadic ...any
// argument list of the form (k1, v1, k2, v2, ...).
type kv struct {
	key   string
	value any
}

// pairUp walks keyvals two at a time. A trailing unpaired key gets a nil
// value; a non-string key is dropped since neither Clue fields nor OTEL
// attributes accept a non-string key. Shared by kvSliceToClue and
// kvSliceToAttrs so the two conversions (log.Fielder, attribute.KeyValue)
// stay in lockstep.
func pairUp(keyvals []any) []kv {
	var pairs []kv
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		var value any
		if i+1 < len(keyvals) {
			value = keyvals[i+1]
		}
		pairs = append(pairs, kv{key: key, value: value})
	}
	return pairs
}

// kvSliceToClue converts variadic key-value pairs into Clue's log.Fielder
// slice.
func kvSliceToClue(keyvals []any) []log.Fielder {
	pairs := pairUp(keyvals)
	if len(pairs) == 0 {
		return nil
	}
	fielders := make([]log.Fielder, len(pairs))
	for i, p := range pairs {
		fielders[i] = log.KV{K: p.key, V: p.value}
	}
	return fielders
}

// tagsToAttrs converts tag strings (k1, v1, k2, v2, ...) into OTEL
// attributes for metrics dimensions.
func tagsToAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(tags); i += 2 {
		k := tags[i]
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

// kvSliceToAttrs converts variadic key-value pairs into OTEL attributes for
// span events, typing each value as closely as the concrete type allows.
func kvSliceToAttrs(keyvals []any) []attribute.KeyValue {
	pairs := pairUp(keyvals)
	attrs := make([]attribute.KeyValue, 0, len(pairs))
	for _, p := range pairs {
		switch val := p.value.(type) {
		case string:
			attrs = append(attrs, attribute.String(p.key, val))
		case int:
			attrs = append(attrs, attribute.Int(p.key, val))
		case int64:
			attrs = append(attrs, attribute.Int64(p.key, val))
		case float64:
			attrs = append(attrs, attribute.Float64(p.key, val))
		case bool:
			attrs = append(attrs, attribute.Bool(p.key, val))
		default:
			attrs = append(attrs, attribute.String(p.key, ""))
		}
	}
	return attrs
}
