package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailure_RequiresError(t *testing.T) {
	r := ExecutionResult{Success: false}
	require.ErrorIs(t, r.Validate(), ErrMissingError)
}

func TestFailure_Constructor(t *testing.T) {
	r := Failure("boom")
	assert.False(t, r.Success)
	assert.Equal(t, "boom", r.Error)
	require.NoError(t, r.Validate())
}

func TestResult_RoundTrip(t *testing.T) {
	original := Success(map[string]any{"doc_id": "abc"}, map[string]any{"elapsed_seconds": 1.5})
	wire, err := original.ToWire()
	require.NoError(t, err)
	got, err := ResultFromWire(wire)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestResult_FailureOmitsErrorWhenSuccess(t *testing.T) {
	wire, err := Success(nil, nil).ToWire()
	require.NoError(t, err)
	assert.NotContains(t, string(wire), `"error"`)
}
