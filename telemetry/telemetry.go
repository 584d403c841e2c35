// Package telemetry provides the Logger/Metrics/Tracer trio used throughout
// the core, plus the execution-id-keyed pub/sub Publisher described in
// spec.md §4.12. Every component takes these by constructor injection; there
// is no package-level global logger.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the core.
// Implementations typically delegate to clue but the interface stays small
// so tests can provide lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter/timer/gauge helpers for instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so core code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// Stage names the coarse phase of a regular log event (spec.md §4.12).
type Stage string

const (
	StageCompile Stage = "COMPILE"
	StageBuild   Stage = "BUILD"
	StageRun     Stage = "RUN"
)

// UpdateState names the UI-facing state of an update log event.
type UpdateState string

const (
	StateInputUpdate  UpdateState = "INPUT_UPDATE"
	StateOutputUpdate UpdateState = "OUTPUT_UPDATE"
	StateRunning      UpdateState = "RUNNING"
	StateSuccess      UpdateState = "SUCCESS"
	StateError        UpdateState = "ERROR"
	StateNext         UpdateState = "NEXT"
)

// LogEvent is a regular log line published over the execution channel.
type LogEvent struct {
	Stage           Stage
	Message         string
	Level           string
	Step            string
	Iteration       int
	IterationTotal  int
	ExecutionID     string
	OrganizationID  string
}

// UpdateEvent is an UI-facing state transition published over the execution
// channel.
type UpdateEvent struct {
	State     UpdateState
	Message   string
	Component string
}

// Publisher is the structural seam between the core (which knows what to
// publish and which channel identifier to publish under) and the transport
// (which it does not know). Implementations wrap the system's pub/sub bus;
// a no-op binding exists for tests (see NewNoopPublisher).
type Publisher interface {
	// PublishLog emits a regular log event on the channel identified by
	// channel (derived from the task's messaging_channel input).
	PublishLog(ctx context.Context, channel string, event LogEvent) error
	// PublishUpdate emits a UI update event on the same channel.
	PublishUpdate(ctx context.Context, channel string, event UpdateEvent) error
}
