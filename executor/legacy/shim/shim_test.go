package shim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/telemetry"
)

func TestGetEnvOrDie_ReturnsStoredPlatformKey(t *testing.T) {
	s := New(Metadata{PlatformAPIKey: "secret"}, nil, nil, "")
	val, err := s.GetEnvOrDie(platformAPIKeyEnvVar)
	require.NoError(t, err)
	assert.Equal(t, "secret", val)
}

func TestGetEnvOrDie_MissingPlatformKeyErrors(t *testing.T) {
	s := New(Metadata{}, nil, nil, "")
	_, err := s.GetEnvOrDie(platformAPIKeyEnvVar)
	assert.ErrorIs(t, err, ErrEnvVarMissing)
}

func TestGetEnvOrDie_FallsBackToProcessEnv(t *testing.T) {
	t.Setenv("SHIM_TEST_VAR", "value")
	s := New(Metadata{}, nil, nil, "")
	val, err := s.GetEnvOrDie("SHIM_TEST_VAR")
	require.NoError(t, err)
	assert.Equal(t, "value", val)
}

func TestGetEnvOrDie_AbsentEnvErrors(t *testing.T) {
	s := New(Metadata{}, nil, nil, "")
	_, err := s.GetEnvOrDie("SHIM_TEST_VAR_ABSENT")
	assert.ErrorIs(t, err, ErrEnvVarMissing)
}

func TestStreamLog_NoChannelDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(Metadata{}, telemetry.NewNoopLogger(), pub, "")
	s.StreamLog(context.Background(), "hi", "INFO", telemetry.StageRun)
	assert.Empty(t, pub.logs)
}

func TestStreamLog_WithChannelPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(Metadata{ExecutionID: "exec-1"}, telemetry.NewNoopLogger(), pub, "chan-1")
	s.StreamLog(context.Background(), "hi", "INFO", telemetry.StageRun)
	require.Len(t, pub.logs, 1)
	assert.Equal(t, "exec-1", pub.logs[0].ExecutionID)
}

func TestStreamErrorAndExit_NeverExits(t *testing.T) {
	s := New(Metadata{}, telemetry.NewNoopLogger(), telemetry.NewNoopPublisher(), "")
	err := s.StreamErrorAndExit(context.Background(), "boom", nil)
	assert.Error(t, err)
}

type recordingPublisher struct {
	logs    []telemetry.LogEvent
	updates []telemetry.UpdateEvent
}

func (r *recordingPublisher) PublishLog(_ context.Context, _ string, event telemetry.LogEvent) error {
	r.logs = append(r.logs, event)
	return nil
}

func (r *recordingPublisher) PublishUpdate(_ context.Context, _ string, event telemetry.UpdateEvent) error {
	r.updates = append(r.updates, event)
	return nil
}
