// Package platform declares the RPC surfaces the core consumes from the
// deployment platform: prompt-studio project lookup, LLM-profile overlay,
// adapter config resolution, and the PromptTool operations, which the
// legacy executor's answer_prompt/single_pass_extraction/summarize handlers
// run in-process rather than through this interface. Only interfaces live
// here; the HTTP/gRPC transport wiring
// is out of scope (spec.md §1 Non-goals).
package platform

import "context"

// ExportedTool is a prompt-studio (or agentic-studio) project document:
// tool_settings plus the ordered prompt specs the legacy executor's
// answer_prompt handler iterates.
type ExportedTool struct {
	ToolMetadata ToolMetadata
	IsAgentic    bool
}

// ToolMetadata carries the tool_settings block and the ordered prompt
// specs (called "outputs" on the wire, per spec.md §4.5.3).
type ToolMetadata struct {
	ToolSettings map[string]any
	Outputs      []map[string]any
}

// LLMProfile overlays chunking/adapter selections onto tool_settings and
// each output entry (spec.md §4.8.1 step 2).
type LLMProfile struct {
	ProfileName        string
	LLMID              string
	EmbeddingModelID   string
	VectorStoreID      string
	X2TextID           string
	ChunkSize          int
	ChunkOverlap       int
	SimilarityTopK     int
	RetrievalStrategy  string
}

// AdapterConfig is the decrypted adapter-instance document.
type AdapterConfig struct {
	AdapterMetadata map[string]any
	AdapterID       string
}

// Helper is the PlatformHelper RPC surface (spec.md §6.2).
type Helper interface {
	GetPromptStudioTool(ctx context.Context, promptRegistryID string) (ExportedTool, bool, error)
	GetAgenticStudioTool(ctx context.Context, agenticRegistryID string) (ExportedTool, bool, error)
	GetLLMProfile(ctx context.Context, profileID string) (LLMProfile, error)
	GetAdapterConfig(ctx context.Context, adapterInstanceID string) (AdapterConfig, error)
}

// PromptToolResult is the uniform shape returned by every PromptTool
// operation.
type PromptToolResult struct {
	Status   string
	Output   map[string]any
	Metadata map[string]any
	Metrics  map[string]any
	Data     string
}

// PromptTool is the PromptTool RPC surface (spec.md §6.2). It exists so
// call sites can depend on an interface even when the legacy executor's
// handlers run the equivalent logic in-process: in this module the legacy
// executor implements these operations directly, and PromptTool models the
// same contract for a deployment that proxies them to a remote service.
type PromptTool interface {
	AnswerPrompt(ctx context.Context, payload map[string]any) (PromptToolResult, error)
	SinglePassExtraction(ctx context.Context, payload map[string]any) (PromptToolResult, error)
	Summarize(ctx context.Context, payload map[string]any) (PromptToolResult, error)
	AgenticExtraction(ctx context.Context, payload map[string]any) (PromptToolResult, error)
}
