// Package adapter defines the capability contracts the core depends on for
// text extraction, LLM completion, embeddings, and vector storage. Only the
// interfaces and lightweight test fakes live here; concrete adapter
// implementations (the real x2text/LLM/vector-DB/embedding SDK bindings)
// are out of scope (spec.md §1 Non-goals).
package adapter

import "context"

// UsageReason tags an LLM call for usage accounting, mirrored onto the
// adapter call so downstream cost dashboards can attribute tokens.
type UsageReason string

const (
	UsageReasonExtraction UsageReason = "extraction"
	UsageReasonSummarize  UsageReason = "summarize"
)

// CompletionRequest is the input to LLM.Complete.
type CompletionRequest struct {
	Prompt      string
	UsageReason UsageReason
	RunID       string
}

// CompletionResponse is the output of LLM.Complete. HighlightData,
// LineNumbers, Confidence are optional enrichment the prompt service
// records into per-prompt metadata when present.
type CompletionResponse struct {
	Text          string
	HighlightData any
	LineNumbers   any
	Confidence    any
	WhisperHash   string
	Usage         Usage
}

// Usage carries token/latency accounting for one completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
}

// LLM is the capability contract for large-language-model completion.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// X2TextRequest is the input to X2Text.Extract.
type X2TextRequest struct {
	FilePath       string
	OutputFilePath string
	EnableHighlight bool
	RunID          string
}

// X2TextResponse is the output of X2Text.Extract.
type X2TextResponse struct {
	ExtractedText string
	WhisperHash   string
}

// X2Text is the capability contract for document-to-text extraction.
type X2Text interface {
	Extract(ctx context.Context, req X2TextRequest) (X2TextResponse, error)
}

// Embedding is the capability contract for text embedding, bound by an
// adapter instance id at construction time (the instance, chunking and
// model choice, is opaque to the core).
type Embedding interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorDB is the capability contract for vector storage and similarity
// search. Every handler that opens a VectorDB must Close it in the same
// invocation (spec.md §4.5.3 step 9, §5 "shared resources").
type VectorDB interface {
	IsDocumentIndexed(ctx context.Context, docID string) (bool, error)
	PerformIndexing(ctx context.Context, docID string, text string, alreadyIndexed bool, reindex bool) error
	Search(ctx context.Context, docID string, query string, topK int) ([]string, error)
	Close(ctx context.Context) error
}

// Factory constructs adapters bound to an adapter-instance id, resolved via
// platform.PlatformHelper.GetAdapterConfig. Handlers depend on Factory, not
// on concrete adapter packages, so no adapter implementation is a compile
// dependency of the core.
type Factory interface {
	X2Text(ctx context.Context, instanceID string) (X2Text, error)
	LLM(ctx context.Context, instanceID string, reason UsageReason) (LLM, error)
	Embedding(ctx context.Context, instanceID string) (Embedding, error)
	VectorDB(ctx context.Context, instanceID string, embedding Embedding) (VectorDB, error)
}
