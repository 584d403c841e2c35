// Package source implements the source connector's file-listing and
// duplicate-suppression subsystem (spec.md §3, §4.9, C9): pattern-matched
// directory walking and upload-batch ingestion, content hashing, and the
// three composable dedup guards (content hash, provider UUID, in-flight
// execution) that together give "at-most-once-concurrent" processing per
// (file, workflow).
package source

import "time"

// SourceConnectionType distinguishes a plain filesystem walk from an
// API-uploaded-blob ingestion (spec.md §3 FileHash.source_connection_type).
type SourceConnectionType string

const (
	SourceConnectionFilesystem SourceConnectionType = "FILESYSTEM"
	SourceConnectionAPI        SourceConnectionType = "API"
)

// FileExtensionSet is one of the named groups patterns.go expands into glob
// patterns (spec.md §4.9 FILESYSTEM connector step 3).
type FileExtensionSet string

const (
	ExtensionSetPDFDocuments  FileExtensionSet = "PDF_DOCUMENTS"
	ExtensionSetTextDocuments FileExtensionSet = "TEXT_DOCUMENTS"
	ExtensionSetImages        FileExtensionSet = "IMAGES"
)

// FileHash is the per-file record produced by the connector (spec.md §3).
type FileHash struct {
	FilePath             string
	FileName             string
	FileSize             int64
	MimeType             string
	FileHash             string // hex SHA-256; empty until computed
	ProviderFileUUID     string
	SourceConnectionType SourceConnectionType
	FileNumber           int
	FSMetadata           map[string]any
	IsExecuted           bool
}

// Key returns the identity pair new listings are deduplicated on: a match on
// either coordinate is a duplicate (spec.md §4.9 step 4, §8.1 "Listing
// dedup").
func (f FileHash) Key() (path, name string) {
	return f.FilePath, f.FileName
}

// HistoryRecord mirrors the FileHistory entity (spec.md §3): a content-level
// cache entry keyed by (workflow, cache key, file path).
type HistoryRecord struct {
	WorkflowID  string
	CacheKey    string // = FileHash or ProviderFileUUID
	FilePath    string
	Status      string
	Result      map[string]any
	IsCompleted bool
	CreatedAt   time.Time
}

// InFlightStatus is the subset of WorkflowFileExecution.status values that
// make a row count as "currently being processed" for the in-flight guard
// (spec.md §4.9 step 6).
type InFlightStatus string

const (
	InFlightPending   InFlightStatus = "PENDING"
	InFlightExecuting InFlightStatus = "EXECUTING"
	InFlightQueued    InFlightStatus = "QUEUED"
)

// InFlightQuery is what the in-flight guard asks the
// WorkflowFileExecution store (spec.md §4.9 step 6): does a non-terminal row
// already exist for this file, scoped to the organization.
type InFlightQuery struct {
	OrganizationID   string
	WorkflowID       string
	FileHash         string
	ProviderFileUUID string
	FilePath         string
}
