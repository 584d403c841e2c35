// Package store declares the relational entities the core treats as logical
// persistence (spec.md §3): WorkflowExecution, WorkflowFileExecution, and
// FileHistory. The core never owns the schema or migrations (spec.md §1
// Out-of-scope); it depends only on the narrow Repository interface below,
// which source's HistoryStore/InFlightStore guards compose against.
// Two concrete bindings are provided: store/mongo (primary, matching the
// teacher's session/run persistence) and store/postgres (an alternate store
// that exercises the unique-constraint race-to-insert-error behavior
// described in spec.md §5 "Locking/transaction discipline").
package store

import "time"

// WorkflowStatus is one of WorkflowExecution.status's five terminal/
// non-terminal values (spec.md §3).
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "PENDING"
	WorkflowExecuting WorkflowStatus = "EXECUTING"
	WorkflowCompleted WorkflowStatus = "COMPLETED"
	WorkflowError     WorkflowStatus = "ERROR"
	WorkflowStopped   WorkflowStatus = "STOPPED"
)

// TerminalStatuses are the final states a notification fires on
// (spec.md §7 "User-visible failure behavior").
var TerminalStatuses = map[WorkflowStatus]bool{
	WorkflowCompleted: true,
	WorkflowError:     true,
	WorkflowStopped:   true,
}

// WorkflowExecution is the parent aggregate (spec.md §3).
type WorkflowExecution struct {
	ExecutionID     string
	WorkflowID      string
	OrganizationID  string
	Status          WorkflowStatus
	TotalFiles      int
	Attempts        int
	ExecutionTimeMS int64
	ErrorMessage    string
	Tags            []string
	PipelineID      string
	APIDeploymentID string
}

// FileExecutionStatus is one of WorkflowFileExecution.status's values;
// PENDING/EXECUTING/QUEUED are the in-flight guard's non-terminal set
// (spec.md §4.9 step 6).
type FileExecutionStatus string

const (
	FileExecutionPending   FileExecutionStatus = "PENDING"
	FileExecutionExecuting FileExecutionStatus = "EXECUTING"
	FileExecutionQueued    FileExecutionStatus = "QUEUED"
	FileExecutionCompleted FileExecutionStatus = "COMPLETED"
	FileExecutionError     FileExecutionStatus = "ERROR"
)

// NonTerminalFileStatuses is the in-flight guard's claim set
// (spec.md §4.9 step 6, §5).
var NonTerminalFileStatuses = map[FileExecutionStatus]bool{
	FileExecutionPending:   true,
	FileExecutionExecuting: true,
	FileExecutionQueued:    true,
}

// WorkflowFileExecution is one row per (WorkflowExecution x FileHash)
// (spec.md §3). The unique constraints named in the spec are enforced by
// the concrete store (unique index in Mongo, unique constraint in
// Postgres), not by this package.
type WorkflowFileExecution struct {
	ID                  string
	WorkflowExecutionID string
	OrganizationID      string
	FileHash            string
	FilePath            string
	ProviderFileUUID    string
	Status              FileExecutionStatus
	ExecutionTimeMS     int64
	ExecutionError      string
}

// FileHistory is a content-level cache entry (spec.md §3). IsCompleted=true
// implies Result is non-empty; enforced by each binding's RecordHistory
// (store/mongo, store/postgres), not by the zero value.
type FileHistory struct {
	WorkflowID  string
	CacheKey    string
	FilePath    string
	Status      string
	Result      map[string]any
	IsCompleted bool
	CreatedAt   time.Time
}

// ErrAlreadyClaimed is returned by Repository.ClaimFileExecution when a
// concurrent insert already holds the (workflow, file_hash|provider_uuid,
// file_path) unique constraint — a lost race, not a programmer error
// (spec.md §5 "a lost race into a deterministic insert error").
var ErrAlreadyClaimed = &claimError{}

type claimError struct{}

func (*claimError) Error() string { return "store: file execution already claimed" }
