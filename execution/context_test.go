package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutionContext_RequiresFields(t *testing.T) {
	_, err := NewExecutionContext("", "extract", "run-1", ExecutionSourceAPI, "", nil, "")
	require.ErrorIs(t, err, ErrEmptyField)
}

func TestNewExecutionContext_GeneratesRequestID(t *testing.T) {
	ctx, err := NewExecutionContext("legacy", "extract", "run-1", ExecutionSourceAPI, "", nil, "")
	require.NoError(t, err)
	assert.NotEmpty(t, ctx.RequestID)
}

func TestNewExecutionContext_PreservesSuppliedRequestID(t *testing.T) {
	ctx, err := NewExecutionContext("legacy", "extract", "run-1", ExecutionSourceAPI, "", nil, "req-123")
	require.NoError(t, err)
	assert.Equal(t, "req-123", ctx.RequestID)
}

func TestOperationNormalization(t *testing.T) {
	ctx, err := NewExecutionContext("legacy", "EXTRACT", "run-1", ExecutionSourceAPI, "", nil, "req-1")
	require.NoError(t, err)
	assert.Equal(t, OperationExtract, ctx.Operation)
}

func TestExecutionContext_RoundTrip(t *testing.T) {
	original, err := NewExecutionContext("legacy", "answer_prompt", "run-42", ExecutionSourceIDE, "org-1",
		map[string]any{"foo": "bar"}, "req-99")
	require.NoError(t, err)

	wire, err := original.ToWire()
	require.NoError(t, err)

	got, err := ContextFromWire(wire)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestContextFromWire_TeleratesMissingOptionalFields(t *testing.T) {
	raw := []byte(`{"executor_name":"legacy","operation":"extract","run_id":"r1","execution_source":"tool"}`)
	ctx, err := ContextFromWire(raw)
	require.NoError(t, err)
	assert.Empty(t, ctx.OrganizationID)
	assert.NotNil(t, ctx.ExecutorParams)
	assert.NotEmpty(t, ctx.RequestID)
}
