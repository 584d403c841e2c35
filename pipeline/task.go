// Package pipeline implements the per-file structure-tool pipeline driver
// (spec.md §4.8, C8): the task-queue entry point that resolves a
// prompt-studio project, dispatches extract/index/answer-prompt operations
// for one file, and writes the final output artifact.
package pipeline

import "github.com/veridoc/pipeline/execution"

// Task is one invocation's input (spec.md §4.8).
type Task struct {
	OrganizationID        string
	WorkflowID            string
	ExecutionID           string
	FileExecutionID       string
	ToolInstanceMetadata  ToolInstanceMetadata
	PlatformServiceAPIKey string
	InputFilePath         string
	OutputDirPath         string
	SourceFileName        string
	ExecutionDataDir      string
	MessagingChannel      string
	FileHash              string
	ExecMetadata          map[string]any
	// Source selects file-storage roots for the dispatched ExecutionContext
	// payloads (spec.md §4.1).
	Source execution.ExecutionSource
}

// ToolInstanceMetadata carries the prompt_registry_id and the feature flags
// that gate pipeline branches (spec.md §4.8).
type ToolInstanceMetadata struct {
	PromptRegistryID         string
	EnableChallenge          bool
	ChallengeLLMAdapterID    string
	SummarizeAsSource        bool
	SinglePassExtractionMode bool
	EnableHighlight          bool
}
