// Package retrieval implements strategy-selected retrieval over a vector
// index (spec.md §4.7, C7), plus the chunk-size-zero "full context" bypass
// used when a prompt opts out of chunking.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veridoc/pipeline/adapter"
)

// Strategy selects how chunks are gathered for a prompt.
type Strategy string

const (
	StrategySimple      Strategy = "simple"
	StrategySubquestion Strategy = "subquestion"
)

// Metrics is the per-prompt context_retrieval record (spec.md §4.7).
type Metrics struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	ChunkCount     int     `json:"chunk_count"`
	Strategy       string  `json:"strategy"`
}

// Service runs retrieval and records its own timing/chunk-count metrics.
type Service struct{}

// New constructs a RetrievalService. It is stateless; New exists for
// parity with the other handler-owned services and to leave room for
// future injected dependencies (a cache, a rate limiter) without changing
// call sites.
func New() *Service { return &Service{} }

// RunRetrieval retrieves chunks for output using strategy. Unrecognized
// strategies return no chunks and no error (spec.md §4.5.3 step 5: "skip
// retrieval, answer stays NA" is the caller's responsibility once chunks
// come back empty).
func (s *Service) RunRetrieval(ctx context.Context, promptName string, query string, docID string, llm adapter.LLM, vdb adapter.VectorDB, strategy Strategy, topK int, metricsSink map[string]Metrics) ([]string, error) {
	start := time.Now()
	var chunks []string
	var err error

	switch strategy {
	case StrategySimple:
		chunks, err = s.runSimple(ctx, docID, query, vdb, topK)
	case StrategySubquestion:
		chunks, err = s.runSubquestion(ctx, docID, query, llm, vdb, topK)
	default:
		chunks = nil
	}
	if err != nil {
		return nil, err
	}

	s.record(metricsSink, promptName, start, len(chunks), string(strategy))
	return chunks, nil
}

func (s *Service) runSimple(ctx context.Context, docID, query string, vdb adapter.VectorDB, topK int) ([]string, error) {
	if vdb == nil {
		return nil, nil
	}
	return vdb.Search(ctx, docID, query, topK)
}

// runSubquestion decomposes query into sub-questions via the LLM, retrieves
// chunks for each, and unions them, deduplicating by exact text match.
func (s *Service) runSubquestion(ctx context.Context, docID, query string, llm adapter.LLM, vdb adapter.VectorDB, topK int) ([]string, error) {
	if vdb == nil {
		return nil, nil
	}
	subquestions, err := s.decompose(ctx, query, llm)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var union []string
	for _, sq := range subquestions {
		chunks, err := vdb.Search(ctx, docID, sq, topK)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			union = append(union, c)
		}
	}
	return union, nil
}

func (s *Service) decompose(ctx context.Context, query string, llm adapter.LLM) ([]string, error) {
	if llm == nil {
		return []string{query}, nil
	}
	resp, err := llm.Complete(ctx, adapter.CompletionRequest{
		Prompt:      fmt.Sprintf("Decompose the following question into standalone sub-questions, one per line:\n\n%s", query),
		UsageReason: adapter.UsageReasonExtraction,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: decompose sub-questions: %w", err)
	}
	return splitNonEmptyLines(resp.Text), nil
}

// RetrieveCompleteContext returns the entire extracted text as a single
// chunk, the chunk_size=0 bypass path (spec.md §4.5.3 step 5).
func (s *Service) RetrieveCompleteContext(promptName string, extractedText string, metricsSink map[string]Metrics) []string {
	start := time.Now()
	chunks := []string{extractedText}
	s.record(metricsSink, promptName, start, len(chunks), "full_context")
	return chunks
}

func (s *Service) record(sink map[string]Metrics, promptName string, start time.Time, chunkCount int, strategy string) {
	if sink == nil {
		return
	}
	sink[promptName] = Metrics{
		ElapsedSeconds: time.Since(start).Seconds(),
		ChunkCount:     chunkCount,
		Strategy:       strategy,
	}
}

func splitNonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return []string{text}
	}
	return lines
}
