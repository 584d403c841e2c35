package store

import (
	"context"

	"github.com/veridoc/pipeline/source"
)

// Repository is the full persistence surface the core depends on for
// WorkflowExecution/WorkflowFileExecution/FileHistory (spec.md §3). It
// embeds source's two guard interfaces so any Repository
// implementation can be wired directly into a FilesystemConnector or
// APIConnector without an adapter shim.
type Repository interface {
	source.HistoryStore
	source.InFlightStore

	// RecordHistory upserts a completed FileHistory row
	// (spec.md §3 FileHistory lifecycle: "updated on re-run").
	RecordHistory(ctx context.Context, h FileHistory) error

	// ClaimFileExecution inserts a WorkflowFileExecution row before the
	// first dispatch for a file (spec.md §4.8.2). It returns
	// ErrAlreadyClaimed, not a generic error, when the unique constraint
	// on (workflow_execution, file_hash, file_path) or
	// (workflow_execution, provider_file_uuid, file_path) is already held
	// (spec.md §5).
	ClaimFileExecution(ctx context.Context, wfe WorkflowFileExecution) (string, error)

	// UpdateFileExecutionStatus mutates a previously claimed row's status
	// and timing. Per spec.md §4.8.2 / §9 open questions, existing
	// metadata wins: a writer must not overwrite a row whose
	// execution_time_ms is already set with a zero value.
	UpdateFileExecutionStatus(ctx context.Context, id string, status FileExecutionStatus, executionTimeMS int64, executionError string) error

	// UpdateWorkflowStatus mutates the parent aggregate's status, used by
	// the callback worker described in spec.md §5 "Cancellation".
	UpdateWorkflowStatus(ctx context.Context, executionID string, status WorkflowStatus, errorMessage string) error

	// GetWorkflowStatus supports the STOP cooperative-cancellation
	// checkpoints in spec.md §5.
	GetWorkflowStatus(ctx context.Context, executionID string) (WorkflowStatus, error)
}
