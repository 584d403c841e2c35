package legacy

import (
	"github.com/veridoc/pipeline/adapter"
	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/executor/legacy/promptsvc"
	"github.com/veridoc/pipeline/executor/legacy/retrieval"
	"github.com/veridoc/pipeline/executor/legacy/shim"
	"github.com/veridoc/pipeline/telemetry"
)

// handlerFunc is the shape every entry in the operation->handler map takes.
type handlerFunc func(e *Executor, req execution.ExecutionContext) execution.ExecutionResult

// Executor is the "legacy" executor (spec.md §4.5): the fixed
// operation->handler map plus the adapter factory and telemetry sinks every
// handler shares.
type Executor struct {
	factory   adapter.Factory
	logger    telemetry.Logger
	publisher telemetry.Publisher

	answerSvc   *promptsvc.AnswerPromptService
	variableSvc *promptsvc.VariableReplacementService
	retrieval   *retrieval.Service

	handlers map[execution.Operation]handlerFunc
}

// New constructs the legacy Executor. factory must not be nil; logger and
// publisher default to no-ops.
func New(factory adapter.Factory, logger telemetry.Logger, publisher telemetry.Publisher) *Executor {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if publisher == nil {
		publisher = telemetry.NewNoopPublisher()
	}
	e := &Executor{
		factory:     factory,
		logger:      logger,
		publisher:   publisher,
		answerSvc:   promptsvc.NewAnswerPromptService(),
		variableSvc: promptsvc.NewVariableReplacementService(),
		retrieval:   retrieval.New(),
	}
	e.handlers = map[execution.Operation]handlerFunc{
		execution.OperationExtract:              (*Executor).handleExtract,
		execution.OperationIndex:                 (*Executor).handleIndex,
		execution.OperationAnswerPrompt:          (*Executor).handleAnswerPrompt,
		execution.OperationSinglePassExtraction:  (*Executor).handleAnswerPrompt,
		execution.OperationSummarize:             (*Executor).handleSummarize,
		execution.OperationAgenticExtraction:     (*Executor).handleAgenticExtraction,
	}
	return e
}

// Name satisfies registry.Executor.
func (e *Executor) Name() string { return "legacy" }

// Execute dispatches req.Operation through the fixed handler map (spec.md
// §4.5). An unsupported operation is a failure, never a panic. Every
// handler returns an ExecutionResult directly: each one converts its own
// *LegacyExecutorError or wrapped adapter *execution.CoreError into a
// failure result, so Execute returns the handler's result unchanged.
func (e *Executor) Execute(req execution.ExecutionContext) execution.ExecutionResult {
	h, ok := e.handlers[req.Operation]
	if !ok {
		return execution.Failure("legacy: unsupported operation " + req.Operation.String())
	}
	return h(e, req)
}

func (e *Executor) newShim(req execution.ExecutionContext, apiKey string) *shim.ToolShim {
	meta := shim.Metadata{
		PlatformAPIKey:  apiKey,
		FileExecutionID: optionalString(req.ExecutorParams, "file_execution_id"),
		ExecutionID:     req.RunID,
		SourceFileName:  optionalString(req.ExecutorParams, "file_path"),
		ExecMetadata:    optionalMap(req.ExecutorParams, "tool_execution_metadata"),
	}
	channel := optionalString(req.ExecutorParams, "log_channel")
	return shim.New(meta, e.logger, e.publisher, channel)
}
