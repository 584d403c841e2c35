package legacy

import (
	"context"
	"time"

	"github.com/veridoc/pipeline/adapter"
	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/executor/legacy/promptsvc"
	"github.com/veridoc/pipeline/executor/legacy/retrieval"
)

// promptSpec is one entry of the answer_prompt payload's "outputs" list
// (spec.md §4.5.3).
type promptSpec struct {
	Name              string
	Prompt            string
	Type              promptsvc.OutputType
	ChunkSize         int
	ChunkOverlap      int
	LLMID             string
	EmbeddingID       string
	VectorDBID        string
	X2TextAdapterID   string
	RetrievalStrategy retrieval.Strategy
	SimilarityTopK    int
}

func parsePromptSpec(raw map[string]any) promptSpec {
	return promptSpec{
		Name:              optionalString(raw, "name"),
		Prompt:            optionalString(raw, "prompt"),
		Type:              promptsvc.OutputType(optionalString(raw, "type")),
		ChunkSize:         optionalInt(raw, "chunk_size", 0),
		ChunkOverlap:      optionalInt(raw, "chunk_overlap", 0),
		LLMID:             optionalString(raw, "llm"),
		EmbeddingID:       optionalString(raw, "embedding"),
		VectorDBID:        optionalString(raw, "vector_db"),
		X2TextAdapterID:   optionalString(raw, "x2text_adapter"),
		RetrievalStrategy: retrieval.Strategy(optionalString(raw, "retrieval_strategy")),
		SimilarityTopK:    optionalInt(raw, "similarity_top_k", 5),
	}
}

// toolSettings is the global, once-per-request piece of the answer_prompt
// payload (spec.md §4.5.3 step 6).
type toolSettings struct {
	Preamble                string
	Postamble               string
	PlatformPostamble       string
	WordConfidencePostamble string
	Grammar                 []promptsvc.GrammarEntry
}

func parseToolSettings(raw map[string]any) toolSettings {
	ts := toolSettings{
		Preamble:                optionalString(raw, "preamble"),
		Postamble:               optionalString(raw, "postamble"),
		PlatformPostamble:       optionalString(raw, "platform_postamble"),
		WordConfidencePostamble: optionalString(raw, "word_confidence_postamble"),
	}
	for _, g := range optionalSlice(raw, "grammar") {
		gm, ok := g.(map[string]any)
		if !ok {
			continue
		}
		entry := promptsvc.GrammarEntry{Word: optionalString(gm, "word")}
		for _, s := range optionalSlice(gm, "synonyms") {
			if str, ok := s.(string); ok {
				entry.Synonyms = append(entry.Synonyms, str)
			}
		}
		ts.Grammar = append(ts.Grammar, entry)
	}
	return ts
}

// handleAnswerPrompt implements spec.md §4.5.3. single_pass_extraction
// (§4.5.4) delegates to this same function; the two operations share a wire
// contract and differ only in how the caller shaped outputs.
func (e *Executor) handleAnswerPrompt(req execution.ExecutionContext) execution.ExecutionResult {
	params := req.ExecutorParams

	rawOutputs := optionalSlice(params, "outputs")
	if len(rawOutputs) == 0 {
		return execution.FailureFromError(NewLegacyExecutorError("missing required parameter \"outputs\""))
	}
	ts := parseToolSettings(optionalMap(params, "tool_settings"))
	customData := optionalMap(params, "custom_data")
	filePath := optionalString(params, "file_path")
	extractedText := optionalString(params, "extracted_text")
	apiKey := optionalString(params, "platform_api_key")

	sh := e.newShim(req, apiKey)
	ctx := context.Background()

	structuredOutput := map[string]any{}
	metadata := map[string]any{}
	metrics := map[string]any{}

	for _, rawOutput := range rawOutputs {
		rawMap, ok := rawOutput.(map[string]any)
		if !ok {
			continue
		}
		spec := parsePromptSpec(rawMap)

		answer, promptMetadata, promptMetrics, err := e.runPrompt(ctx, spec, ts, structuredOutput, customData, filePath, extractedText, req.RunID)
		if err != nil {
			return execution.FailureFromError(sh.StreamErrorAndExit(ctx, "prompt \""+spec.Name+"\" failed", err))
		}

		structuredOutput[spec.Name] = answer
		if promptMetadata != nil {
			metadata[spec.Name] = promptMetadata
		}
		if promptMetrics != nil {
			metrics[spec.Name] = promptMetrics
		}
	}

	sanitized := promptsvc.SanitizeNA(structuredOutput)

	return execution.Success(map[string]any{
		"output":   sanitized,
		"metadata": metadata,
		"metrics":  metrics,
	}, nil)
}

// runPrompt runs the full per-prompt algorithm (spec.md §4.5.3 steps 1-9)
// for one outputs entry.
func (e *Executor) runPrompt(ctx context.Context, spec promptSpec, ts toolSettings, structuredOutput map[string]any, customData map[string]any, filePath, extractedText, runID string) (any, map[string]any, map[string]any, error) {
	// Step 1: variable replacement.
	prompt, err := e.variableSvc.ReplaceVariablesInPrompt(spec.Prompt, structuredOutput, customData)
	if err != nil {
		return nil, nil, nil, err
	}
	prompt, err = promptsvc.ExtractVariable(prompt, structuredOutput)
	if err != nil {
		return nil, nil, nil, err
	}

	// Step 4: unsupported types fail fast, before any adapter is built.
	if spec.Type == promptsvc.OutputTypeTable || spec.Type == promptsvc.OutputTypeLineItem {
		return nil, nil, nil, NewLegacyExecutorErrorWithCode(
			"prompt \""+spec.Name+"\": type "+string(spec.Type)+" requires a plugin not available in this core",
			"plugin_missing",
		)
	}

	// Step 2: doc-id regeneration.
	docID := computeDocID(spec.VectorDBID, spec.EmbeddingID, spec.X2TextAdapterID, spec.ChunkSize, spec.ChunkOverlap, fileContentHash(filePath))

	// Step 3: adapter instantiation.
	llm, err := e.factory.LLM(ctx, spec.LLMID, adapter.UsageReasonExtraction)
	if err != nil {
		return nil, nil, nil, execution.Wrap(execution.KindAdapter, "answer_prompt: llm adapter construction failed", err)
	}

	var vdb adapter.VectorDB
	if spec.ChunkSize > 0 {
		embedding, err := e.factory.Embedding(ctx, spec.EmbeddingID)
		if err != nil {
			return nil, nil, nil, execution.Wrap(execution.KindAdapter, "answer_prompt: embedding adapter construction failed", err)
		}
		vdb, err = e.factory.VectorDB(ctx, spec.VectorDBID, embedding)
		if err != nil {
			return nil, nil, nil, execution.Wrap(execution.KindAdapter, "answer_prompt: vector db construction failed", err)
		}
		defer vdb.Close(ctx)
	}

	retrievalMetrics := map[string]retrieval.Metrics{}
	answer, promptMetadata, err := e.retrieveAndAnswer(ctx, spec, ts, prompt, docID, llm, vdb, extractedText, runID, retrievalMetrics)
	if err != nil {
		return nil, nil, nil, err
	}

	promptMetrics := map[string]any{}
	if m, ok := retrievalMetrics[spec.Name]; ok {
		promptMetrics["context_retrieval"] = m
	}

	// Step 7: type-specific coercion.
	coerced, err := promptsvc.Coerce(ctx, spec.Type, answer, llm, runID)
	if err != nil {
		return nil, nil, nil, execution.Wrap(execution.KindAdapter, "answer_prompt: coercion failed for prompt \""+spec.Name+"\"", err)
	}

	return coerced, promptMetadata, promptMetrics, nil
}

// retrieveAndAnswer runs steps 5-6: retrieval, prompt assembly, completion.
// An unrecognized retrieval strategy short-circuits to the "NA" sentinel
// answer without invoking the LLM (spec.md §4.5.3 step 5).
func (e *Executor) retrieveAndAnswer(ctx context.Context, spec promptSpec, ts toolSettings, prompt, docID string, llm adapter.LLM, vdb adapter.VectorDB, extractedText, runID string, metricsSink map[string]retrieval.Metrics) (string, map[string]any, error) {
	recognized := spec.RetrievalStrategy == retrieval.StrategySimple || spec.RetrievalStrategy == retrieval.StrategySubquestion
	if !recognized {
		return "na", nil, nil
	}

	var chunks []string
	var err error
	if spec.ChunkSize == 0 {
		chunks = e.retrieval.RetrieveCompleteContext(spec.Name, extractedText, metricsSink)
	} else {
		chunks, err = e.retrieval.RunRetrieval(ctx, spec.Name, prompt, docID, llm, vdb, spec.RetrievalStrategy, spec.SimilarityTopK, metricsSink)
		if err != nil {
			return "", nil, execution.Wrap(execution.KindAdapter, "answer_prompt: retrieval failed for prompt \""+spec.Name+"\"", err)
		}
	}

	joined := joinChunks(chunks)
	assembled := e.answerSvc.ConstructPrompt(ts.Preamble, prompt, ts.Postamble, ts.Grammar, joined, ts.PlatformPostamble, ts.WordConfidencePostamble)

	start := time.Now()
	text, completionMeta, err := e.answerSvc.RunCompletion(ctx, llm, assembled, runID)
	if err != nil {
		return "", nil, execution.Wrap(execution.KindAdapter, "answer_prompt: completion failed for prompt \""+spec.Name+"\"", err)
	}

	promptMetadata := map[string]any{
		"context":          chunks,
		"highlight_data":   completionMeta.HighlightData,
		"line_numbers":     completionMeta.LineNumbers,
		"whisper_hash":     completionMeta.WhisperHash,
		"confidence_data":  completionMeta.Confidence,
		"completion_ms":    time.Since(start).Milliseconds(),
	}
	return text, promptMetadata, nil
}

func joinChunks(chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}
	joined := chunks[0]
	for _, c := range chunks[1:] {
		joined += "\n\n" + c
	}
	return joined
}
