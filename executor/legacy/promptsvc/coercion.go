package promptsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/veridoc/pipeline/adapter"
)

// OutputType is one of the prompt spec's declared answer types (spec.md
// §4.5.3). Table and LineItem are recognized here only so callers can
// detect and reject them before reaching coercion; this package never
// produces an answer for them.
type OutputType string

const (
	OutputTypeText     OutputType = "text"
	OutputTypeNumber   OutputType = "number"
	OutputTypeEmail    OutputType = "email"
	OutputTypeDate     OutputType = "date"
	OutputTypeBoolean  OutputType = "boolean"
	OutputTypeJSON     OutputType = "json"
	OutputTypeTable    OutputType = "table"
	OutputTypeLineItem OutputType = "line-item"
)

// naMarker is the sentinel string the LLM emits for "not applicable"
// answers (spec.md §4.5.3 step 7, case-insensitive).
const naMarker = "na"

// isNA reports whether answer is the "NA" sentinel, case-insensitively.
func isNA(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), naMarker)
}

// Coerce applies the type-specific post-processing table (spec.md §4.5.3
// step 7) to a raw LLM answer. For number/email/date/boolean,
// secondCompletion drives the canned second completion; for text and json,
// no second call is made.
func Coerce(ctx context.Context, outputType OutputType, rawAnswer string, llm adapter.LLM, runID string) (any, error) {
	switch outputType {
	case OutputTypeText:
		return strings.TrimRight(rawAnswer, "\n"), nil
	case OutputTypeNumber:
		return coerceNumber(ctx, rawAnswer, llm, runID)
	case OutputTypeEmail:
		return coerceSecondCall(ctx, rawAnswer, llm, runID, "Extract just the email address from the following text, with no other words:")
	case OutputTypeDate:
		return coerceDate(ctx, rawAnswer, llm, runID)
	case OutputTypeBoolean:
		return coerceBoolean(ctx, rawAnswer, llm, runID)
	case OutputTypeJSON:
		return coerceJSON(rawAnswer)
	default:
		return nil, fmt.Errorf("promptsvc: coercion not supported for type %q", outputType)
	}
}

func coerceNumber(ctx context.Context, rawAnswer string, llm adapter.LLM, runID string) (any, error) {
	if isNA(rawAnswer) {
		return nil, nil
	}
	extracted, err := secondCompletion(ctx, llm, runID, "Extract just the number from the following text, with no other words:", rawAnswer)
	if err != nil {
		return nil, nil
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(extracted), 64)
	if err != nil {
		return nil, nil
	}
	return val, nil
}

func coerceSecondCall(ctx context.Context, rawAnswer string, llm adapter.LLM, runID, instruction string) (any, error) {
	if isNA(rawAnswer) {
		return nil, nil
	}
	extracted, err := secondCompletion(ctx, llm, runID, instruction, rawAnswer)
	if err != nil {
		return nil, nil
	}
	return strings.TrimSpace(extracted), nil
}

func coerceDate(ctx context.Context, rawAnswer string, llm adapter.LLM, runID string) (any, error) {
	if isNA(rawAnswer) {
		return nil, nil
	}
	extracted, err := secondCompletion(ctx, llm, runID, `Extract the date from the following text and respond with an ISO-8601 date, or "NA" if none is present:`, rawAnswer)
	if err != nil || isNA(extracted) {
		return nil, nil
	}
	return strings.TrimSpace(extracted), nil
}

func coerceBoolean(ctx context.Context, rawAnswer string, llm adapter.LLM, runID string) (any, error) {
	if isNA(rawAnswer) {
		return nil, nil
	}
	extracted, err := secondCompletion(ctx, llm, runID, `Answer yes or no, with no other words, based on the following text:`, rawAnswer)
	if err != nil {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(extracted)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return nil, nil
	}
}

func coerceJSON(rawAnswer string) (any, error) {
	trimmed := strings.TrimSpace(rawAnswer)
	if isNA(trimmed) || trimmed == "[]" {
		return nil, nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		repaired, repairErr := repairJSON(trimmed)
		if repairErr != nil {
			return nil, nil
		}
		return repaired, nil
	}
	return parsed, nil
}

// repairJSON is the second-chance parse used when no json-extraction plugin
// is present (§4.5.3 step 7): it removes one comma at the very end of the
// text and parses again. Commas inside an object or array and unquoted keys
// are not repaired; such input still fails.
func repairJSON(raw string) (any, error) {
	candidate := strings.TrimSuffix(strings.TrimSpace(raw), ",")
	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func secondCompletion(ctx context.Context, llm adapter.LLM, runID, instruction, rawAnswer string) (string, error) {
	if llm == nil {
		return "", fmt.Errorf("promptsvc: no llm configured for second-pass coercion")
	}
	resp, err := llm.Complete(ctx, adapter.CompletionRequest{
		Prompt:      instruction + "\n\n" + rawAnswer,
		UsageReason: adapter.UsageReasonExtraction,
		RunID:       runID,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
