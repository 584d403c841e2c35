package promptsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/veridoc/pipeline/adapter"
)

// GrammarEntry pairs a word with its accepted synonyms, expanded into a
// human-readable note inside the constructed prompt.
type GrammarEntry struct {
	Word     string
	Synonyms []string
}

// AnswerPromptService assembles the final LLM prompt and runs completion,
// recording enrichment metadata returned alongside the answer text.
type AnswerPromptService struct{}

// NewAnswerPromptService constructs an AnswerPromptService. Stateless; see
// retrieval.New for why a constructor exists despite no fields.
func NewAnswerPromptService() *AnswerPromptService { return &AnswerPromptService{} }

// ConstructPrompt assembles the full prompt text per spec.md §4.5.3 step 6.
func (AnswerPromptService) ConstructPrompt(preamble, prompt, postamble string, grammar []GrammarEntry, context, platformPostamble, wordConfidencePostamble string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\nQuestion or Instruction: ")
	b.WriteString(prompt)
	if notes := grammarNotes(grammar); notes != "" {
		b.WriteString(notes)
	}
	b.WriteString("\n\n")
	b.WriteString(postamble)
	b.WriteString("\n\nContext:\n---\n")
	b.WriteString(context)
	b.WriteString("\n---\n\n")
	b.WriteString(platformPostamble)
	if wordConfidencePostamble != "" {
		b.WriteString(wordConfidencePostamble)
	}
	b.WriteString("Answer:")
	return b.String()
}

func grammarNotes(grammar []GrammarEntry) string {
	if len(grammar) == 0 {
		return ""
	}
	var lines []string
	for _, g := range grammar {
		if len(g.Synonyms) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("the word %s is same as %s", g.Word, strings.Join(g.Synonyms, ", ")))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n" + strings.Join(lines, "\n")
}

// CompletionMetadata is the per-prompt enrichment recorded alongside the
// raw answer text (spec.md §4.5.3 step 6).
type CompletionMetadata struct {
	HighlightData any
	LineNumbers   any
	WhisperHash   string
	Confidence    any
}

// RunCompletion wraps llm.Complete, returning the answer text and the
// enrichment metadata to merge into metadata[promptName].
func (AnswerPromptService) RunCompletion(ctx context.Context, llm adapter.LLM, prompt string, runID string) (string, CompletionMetadata, error) {
	resp, err := llm.Complete(ctx, adapter.CompletionRequest{
		Prompt:      prompt,
		UsageReason: adapter.UsageReasonExtraction,
		RunID:       runID,
	})
	if err != nil {
		return "", CompletionMetadata{}, fmt.Errorf("promptsvc: run completion: %w", err)
	}
	return resp.Text, CompletionMetadata{
		HighlightData: resp.HighlightData,
		LineNumbers:   resp.LineNumbers,
		WhisperHash:   resp.WhisperHash,
		Confidence:    resp.Confidence,
	}, nil
}
