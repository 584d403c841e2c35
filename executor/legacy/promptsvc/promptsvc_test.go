package promptsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/adapter"
)

func TestConstructPrompt_AssemblesTemplate(t *testing.T) {
	svc := NewAnswerPromptService()
	got := svc.ConstructPrompt("Preamble", "What is X?", "Postamble", nil, "ctx-body", "platform-post ", "")
	assert.Contains(t, got, "Preamble")
	assert.Contains(t, got, "Question or Instruction: What is X?")
	assert.Contains(t, got, "Context:\n---\nctx-body\n---")
	assert.Contains(t, got, "platform-post ")
	assert.True(t, got[len(got)-7:] == "Answer:")
}

func TestConstructPrompt_GrammarNotesExpand(t *testing.T) {
	svc := NewAnswerPromptService()
	got := svc.ConstructPrompt("p", "q", "post", []GrammarEntry{{Word: "revenue", Synonyms: []string{"sales", "income"}}}, "ctx", "", "")
	assert.Contains(t, got, "the word revenue is same as sales, income")
}

func TestIsVariablesPresent(t *testing.T) {
	v := NewVariableReplacementService()
	assert.True(t, v.IsVariablesPresent("hello {{name}}"))
	assert.False(t, v.IsVariablesPresent("hello name"))
}

func TestReplaceVariablesInPrompt_Static(t *testing.T) {
	v := NewVariableReplacementService()
	result, err := v.ReplaceVariablesInPrompt("Value is {{revenue}}", map[string]any{"revenue": "$1M"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Value is $1M", result)
}

func TestReplaceVariablesInPrompt_CustomDataMissingKeyErrors(t *testing.T) {
	v := NewVariableReplacementService()
	_, err := v.ReplaceVariablesInPrompt("{{custom_data.missing}}", nil, map[string]any{})
	require.Error(t, err)
	var cdErr *CustomDataError
	assert.ErrorAs(t, err, &cdErr)
}

func TestExtractVariable_BackReference(t *testing.T) {
	result, err := ExtractVariable("Given %a%, compute Y", map[string]any{"a": "42"})
	require.NoError(t, err)
	assert.Equal(t, "Given 42, compute Y", result)
}

func TestExtractVariable_MissingBackReferenceErrors(t *testing.T) {
	_, err := ExtractVariable("Given %missing%, compute Y", map[string]any{})
	assert.Error(t, err)
}

func TestCoerce_Text(t *testing.T) {
	got, err := Coerce(context.Background(), OutputTypeText, "Revenue is $1M\n\n", nil, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Revenue is $1M", got)
}

func TestCoerce_NumberNAShortCircuitsWithoutSecondCall(t *testing.T) {
	llm := &adapter.FakeLLM{}
	got, err := Coerce(context.Background(), OutputTypeNumber, "NA", llm, "run-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, llm.Calls, "the number-extraction second LLM call must not be made for NA")
}

func TestCoerce_NumberParsesSecondCallResult(t *testing.T) {
	llm := &adapter.FakeLLM{Response: adapter.CompletionResponse{Text: "1000000"}}
	got, err := Coerce(context.Background(), OutputTypeNumber, "Revenue is 1,000,000 dollars", llm, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1000000.0, got)
}

func TestCoerce_BooleanMapsYesNo(t *testing.T) {
	llm := &adapter.FakeLLM{Response: adapter.CompletionResponse{Text: "yes"}}
	got, err := Coerce(context.Background(), OutputTypeBoolean, "The company is profitable", llm, "run-1")
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestCoerce_JSONParsesValidJSON(t *testing.T) {
	got, err := Coerce(context.Background(), OutputTypeJSON, `{"a": 1}`, nil, "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, got)
}

func TestCoerce_JSONEmptyArrayIsNull(t *testing.T) {
	got, err := Coerce(context.Background(), OutputTypeJSON, "[]", nil, "run-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSanitizeNA_NestedCaseInsensitive(t *testing.T) {
	input := map[string]any{
		"a": "na",
		"b": []any{
			map[string]any{"c": "NA", "d": "keep"},
		},
	}
	got := SanitizeNA(input)
	m := got.(map[string]any)
	assert.Nil(t, m["a"])
	nested := m["b"].([]any)[0].(map[string]any)
	assert.Nil(t, nested["c"])
	assert.Equal(t, "keep", nested["d"])
}

func TestSanitizeNA_Idempotent(t *testing.T) {
	input := map[string]any{"a": "NA", "b": "keep"}
	once := SanitizeNA(input)
	twice := SanitizeNA(once)
	assert.Equal(t, once, twice)
}
