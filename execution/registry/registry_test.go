package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/execution"
)

type stubExecutor struct{ calls int }

func (s *stubExecutor) Name() string { return "stub" }
func (s *stubExecutor) Execute(execution.ExecutionContext) execution.ExecutionResult {
	s.calls++
	return execution.Success(nil, nil)
}

func TestRegistry_DuplicateNameFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", func() Executor { return &stubExecutor{} }))
	err := r.Register("stub", func() Executor { return &stubExecutor{} })
	require.Error(t, err)
}

func TestRegistry_GetReturnsFreshInstance(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", func() Executor { return &stubExecutor{} }))

	first, err := r.Get("stub")
	require.NoError(t, err)
	first.Execute(execution.ExecutionContext{})

	second, err := r.Get("stub")
	require.NoError(t, err)
	assert.Equal(t, 0, second.(*stubExecutor).calls, "Get must return a fresh instance, not a shared singleton")
}

func TestRegistry_UnknownNameListsRegistered(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", func() Executor { return &stubExecutor{} }))
	require.NoError(t, r.Register("b", func() Executor { return &stubExecutor{} }))

	_, err := r.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[a b]")
}

func TestRegistry_ListSorted(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("zeta", func() Executor { return &stubExecutor{} }))
	require.NoError(t, r.Register("alpha", func() Executor { return &stubExecutor{} }))
	assert.Equal(t, []string{"alpha", "zeta"}, r.List())
}

func TestRegistry_ClearRemovesAll(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", func() Executor { return &stubExecutor{} }))
	r.Clear()
	assert.Empty(t, r.List())
}
