// Package legacy implements the "legacy" executor (spec.md §4.5, C5): one
// operation -> handler map covering extract, index, answer_prompt,
// single_pass_extraction, summarize, and agentic_extraction.
package legacy

import "fmt"

// LegacyExecutorError is the typed failure envelope handlers raise for
// expected failure modes (bad params, an adapter call that failed, an
// unbundled plugin). The handler that produces it turns it into a failure
// result itself (via execution.FailureFromError); anything a handler panics
// with propagates to the orchestrator.
type LegacyExecutorError struct {
	Message string
	Code    string
}

// NewLegacyExecutorError constructs a LegacyExecutorError with no code.
func NewLegacyExecutorError(message string) *LegacyExecutorError {
	return &LegacyExecutorError{Message: message}
}

// NewLegacyExecutorErrorWithCode constructs a LegacyExecutorError carrying a
// stable machine-readable code (e.g. "plugin_missing").
func NewLegacyExecutorErrorWithCode(message, code string) *LegacyExecutorError {
	return &LegacyExecutorError{Message: message, Code: code}
}

func (e *LegacyExecutorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}
