// Package shim implements the minimal "tool context" object adapter
// libraries expect (spec.md §4.11, §9 "Tool context as a capability
// bundle"): four behaviors, no inheritance surface, constructed fresh for
// every task invocation.
package shim

import (
	"context"
	"fmt"
	"os"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/telemetry"
)

// platformAPIKeyEnvVar is the one key GetEnvOrDie answers from the stored
// platform API key instead of the process environment.
const platformAPIKeyEnvVar = "PLATFORM_SERVICE_API_KEY"

// ErrEnvVarMissing is returned by GetEnvOrDie when a requested key has no
// value: the stored key for PLATFORM_SERVICE_API_KEY, the process
// environment for every other key.
var ErrEnvVarMissing = fmt.Errorf("shim: required environment variable is missing")

// Metadata is the fixed set of per-request fields the shim is allowed to
// carry (spec.md §4.11: "never carry per-request state beyond" these).
type Metadata struct {
	PlatformAPIKey    string
	FileExecutionID   string
	ExecutionID       string
	SourceFileName    string
	ExecMetadata      map[string]any
}

// ToolShim is the capability bundle handed to adapter-library calls.
type ToolShim struct {
	meta      Metadata
	logger    telemetry.Logger
	publisher telemetry.Publisher
	channel   string
}

// New constructs a ToolShim for one task invocation. publisher and channel
// may be zero-valued (NoopPublisher, "") for contexts with no telemetry
// channel, e.g. CLI one-shot runs.
func New(meta Metadata, logger telemetry.Logger, publisher telemetry.Publisher, channel string) *ToolShim {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if publisher == nil {
		publisher = telemetry.NewNoopPublisher()
	}
	return &ToolShim{meta: meta, logger: logger, publisher: publisher, channel: channel}
}

// GetEnvOrDie returns the stored platform API key when asked for
// PLATFORM_SERVICE_API_KEY; otherwise reads the process environment.
// Returns ErrEnvVarMissing on an absent or empty value.
func (s *ToolShim) GetEnvOrDie(key string) (string, error) {
	if key == platformAPIKeyEnvVar {
		if s.meta.PlatformAPIKey == "" {
			return "", fmt.Errorf("%w: %s", ErrEnvVarMissing, key)
		}
		return s.meta.PlatformAPIKey, nil
	}
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%w: %s", ErrEnvVarMissing, key)
	}
	return val, nil
}

// StreamLog routes message to the structured logger and, when a telemetry
// channel is configured, publishes it on the channel (spec.md §4.12).
func (s *ToolShim) StreamLog(ctx context.Context, message string, level string, stage telemetry.Stage) {
	s.logger.Info(ctx, message, "level", level, "stage", string(stage), "execution_id", s.meta.ExecutionID)
	if s.channel == "" {
		return
	}
	_ = s.publisher.PublishLog(ctx, s.channel, telemetry.LogEvent{
		Stage:       stage,
		Message:     message,
		Level:       level,
		ExecutionID: s.meta.ExecutionID,
	})
}

// StreamUpdate publishes an INPUT_UPDATE/OUTPUT_UPDATE-style marker for the
// UI (spec.md §4.12).
func (s *ToolShim) StreamUpdate(ctx context.Context, message string, state telemetry.UpdateState) {
	if s.channel == "" {
		return
	}
	_ = s.publisher.PublishUpdate(ctx, s.channel, telemetry.UpdateEvent{
		State:   state,
		Message: message,
	})
}

// StreamErrorAndExit returns a typed SDK error describing message; it never
// terminates the process (the shim runs inside a worker, per spec.md
// §4.11).
func (s *ToolShim) StreamErrorAndExit(ctx context.Context, message string, cause error) error {
	s.logger.Error(ctx, message, "execution_id", s.meta.ExecutionID)
	if s.channel != "" {
		_ = s.publisher.PublishUpdate(ctx, s.channel, telemetry.UpdateEvent{State: telemetry.StateError, Message: message})
	}
	return execution.Wrap(execution.KindAdapter, message, cause)
}

// Metadata returns the shim's fixed per-request fields.
func (s *ToolShim) Metadata() Metadata { return s.meta }
