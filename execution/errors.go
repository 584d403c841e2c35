package execution

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy buckets from the error
// handling design: configuration errors are startup failures, validation and
// adapter errors become failure results, timeouts and plugin-missing errors
// are declared failures with a stable message shape.
type Kind string

const (
	// KindConfiguration covers missing env vars, unknown backend types, and
	// malformed wire contexts. Surfaced at startup; never wrapped in a result.
	KindConfiguration Kind = "configuration"
	// KindValidation covers empty required fields, unknown executor names,
	// and unsupported operations. Surfaced as ExecutionResult.failure.
	KindValidation Kind = "validation"
	// KindAdapter covers x2text/LLM/vector-DB/embedding call failures.
	KindAdapter Kind = "adapter"
	// KindTimeout covers queue-wait and LLM-rate-limit timeouts.
	KindTimeout Kind = "timeout"
	// KindPluginMissing covers TABLE, LINE_ITEM, and agentic-extraction
	// plugins that are not bundled in this core.
	KindPluginMissing Kind = "plugin_missing"
)

// CoreError is the structured error type threaded through handlers,
// the orchestrator, and the dispatcher. It preserves a Kind for taxonomy
// dispatch and an optional Cause for error chains via errors.Is/As.
type CoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs a CoreError with the given kind and message.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Newf formats a CoreError message.
func Newf(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with a CoreError of the given kind and message.
func Wrap(kind Kind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap supports errors.Is/As over the error chain.
func (e *CoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// As reports whether err is or wraps a *CoreError, writing the match into target.
func As(err error, target **CoreError) bool {
	return errors.As(err, target)
}

// FailureFromError maps an arbitrary error into an ExecutionResult.failure,
// using the raw message for an error that is or wraps a *CoreError, which
// already self-describes, and "<type>: <message>" formatting for every
// other error. A LegacyExecutorError is not a CoreError, so it gets the
// "<type>: <message>" form unless it arrives wrapped in one.
func FailureFromError(err error) ExecutionResult {
	if err == nil {
		return Failure("unknown error")
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return Failure(ce.Error())
	}
	return Failure(fmt.Sprintf("%T: %s", err, err.Error()))
}
