package execution

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ExecutionSource selects which file-storage roots and log routing a context
// should use. IDE and TOOL sources are driven from the prompt-studio UI;
// API sources are driven from the public deployment endpoint.
type ExecutionSource string

const (
	// ExecutionSourceIDE selects persistent remote storage (prompt studio).
	ExecutionSourceIDE ExecutionSource = "ide"
	// ExecutionSourceTool selects shared, short-lived temporary storage.
	ExecutionSourceTool ExecutionSource = "tool"
	// ExecutionSourceAPI selects local storage scoped to the API deployment.
	ExecutionSourceAPI ExecutionSource = "api"
)

// ExecutionContext is the immutable request envelope submitted to an
// executor, whether in-process (Orchestrator) or across a queue
// (Dispatcher). It must be fully JSON-serializable: every field survives a
// queue round-trip with no loss of meaning.
type ExecutionContext struct {
	// ExecutorName selects a registered executor, e.g. "legacy".
	ExecutorName string
	// Operation is one of the six canonical Operation values, stored
	// canonicalized regardless of how it was supplied.
	Operation Operation
	// RunID is stable per file execution; threaded into logs and adapter
	// usage tracking.
	RunID string
	// Source selects file-storage roots and log routing.
	Source ExecutionSource
	// OrganizationID scopes the call to a tenant. Empty for public calls.
	OrganizationID string
	// ExecutorParams carries the operation-specific payload.
	ExecutorParams map[string]any
	// RequestID threads trace context across workers. Generated if absent;
	// never overwritten once supplied.
	RequestID string
}

// ErrEmptyField is returned when a required ExecutionContext field is empty.
var ErrEmptyField = errors.New("execution: required field is empty")

// NewExecutionContext validates and constructs an ExecutionContext. All
// fields except organizationID, requestID, and executorParams must be
// non-empty; requestID is generated (UUID v4) when absent.
func NewExecutionContext(executorName string, operation string, runID string, source ExecutionSource, organizationID string, executorParams map[string]any, requestID string) (ExecutionContext, error) {
	if executorName == "" || operation == "" || runID == "" || source == "" {
		return ExecutionContext{}, ErrEmptyField
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if executorParams == nil {
		executorParams = map[string]any{}
	}
	return ExecutionContext{
		ExecutorName:   executorName,
		Operation:      Normalize(operation),
		RunID:          runID,
		Source:         source,
		OrganizationID: organizationID,
		ExecutorParams: executorParams,
		RequestID:      requestID,
	}, nil
}

// wireContext is the JSON-on-the-wire shape of ExecutionContext. Optional
// fields are tagged omitempty so from_wire tolerates their absence.
type wireContext struct {
	ExecutorName   string         `json:"executor_name"`
	Operation      string         `json:"operation"`
	RunID          string         `json:"run_id"`
	ExecutionSource string        `json:"execution_source"`
	OrganizationID string         `json:"organization_id,omitempty"`
	ExecutorParams map[string]any `json:"executor_params,omitempty"`
	RequestID      string         `json:"request_id,omitempty"`
}

// ToWire serializes the context to its JSON wire representation.
func (c ExecutionContext) ToWire() ([]byte, error) {
	w := wireContext{
		ExecutorName:    c.ExecutorName,
		Operation:       c.Operation.String(),
		RunID:           c.RunID,
		ExecutionSource: string(c.Source),
		OrganizationID:  c.OrganizationID,
		ExecutorParams:  c.ExecutorParams,
		RequestID:       c.RequestID,
	}
	return json.Marshal(w)
}

// ContextFromWire deserializes a JSON wire payload into an ExecutionContext.
// Missing optional fields (organization_id, executor_params) are tolerated.
func ContextFromWire(data []byte) (ExecutionContext, error) {
	var w wireContext
	if err := json.Unmarshal(data, &w); err != nil {
		return ExecutionContext{}, err
	}
	if w.ExecutorName == "" || w.Operation == "" || w.RunID == "" || w.ExecutionSource == "" {
		return ExecutionContext{}, ErrEmptyField
	}
	params := w.ExecutorParams
	if params == nil {
		params = map[string]any{}
	}
	requestID := w.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return ExecutionContext{
		ExecutorName:   w.ExecutorName,
		Operation:      Normalize(w.Operation),
		RunID:          w.RunID,
		Source:         ExecutionSource(w.ExecutionSource),
		OrganizationID: w.OrganizationID,
		ExecutorParams: params,
		RequestID:      requestID,
	}, nil
}
