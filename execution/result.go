package execution

import (
	"encoding/json"
	"errors"
)

// ExecutionResult is the immutable response envelope returned by executors,
// the Orchestrator, and the Dispatcher. Success=false implies a non-empty
// Error; success=true implies Error is omitted from the wire form.
type ExecutionResult struct {
	Success  bool
	Data     map[string]any
	Metadata map[string]any
	Error    string
}

// ErrMissingError is returned by validation when a failed result carries no
// error message.
var ErrMissingError = errors.New("execution: failed result must carry a non-empty error")

// Success constructs a successful ExecutionResult.
func Success(data map[string]any, metadata map[string]any) ExecutionResult {
	if data == nil {
		data = map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ExecutionResult{Success: true, Data: data, Metadata: metadata}
}

// Failure is the idiomatic constructor for failed results.
func Failure(err string, metadata ...map[string]any) ExecutionResult {
	var md map[string]any
	if len(metadata) > 0 && metadata[0] != nil {
		md = metadata[0]
	} else {
		md = map[string]any{}
	}
	return ExecutionResult{Success: false, Data: map[string]any{}, Metadata: md, Error: err}
}

// Validate enforces the success/error invariant: success=false requires a
// non-empty Error.
func (r ExecutionResult) Validate() error {
	if !r.Success && r.Error == "" {
		return ErrMissingError
	}
	return nil
}

type wireResult struct {
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ToWire serializes the result to its JSON wire representation.
func (r ExecutionResult) ToWire() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	w := wireResult{Success: r.Success, Data: r.Data, Metadata: r.Metadata}
	if !r.Success {
		w.Error = r.Error
	}
	return json.Marshal(w)
}

// ResultFromWire deserializes a JSON wire payload into an ExecutionResult.
func ResultFromWire(data []byte) (ExecutionResult, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return ExecutionResult{}, err
	}
	d := w.Data
	if d == nil {
		d = map[string]any{}
	}
	md := w.Metadata
	if md == nil {
		md = map[string]any{}
	}
	r := ExecutionResult{Success: w.Success, Data: d, Metadata: md, Error: w.Error}
	if err := r.Validate(); err != nil {
		return ExecutionResult{}, err
	}
	return r, nil
}
