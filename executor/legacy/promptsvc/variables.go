// Package promptsvc implements prompt construction and variable
// substitution for the answer_prompt handler (spec.md §4.6, C6): the
// `{{var}}` static/custom-data syntax, the `%var%` back-reference syntax,
// prompt assembly, and typed post-processing of LLM answers.
package promptsvc

import (
	"fmt"
	"regexp"
	"strings"
)

// staticVarPattern matches {{name}} and {{custom_data.key}} occurrences.
var staticVarPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// backRefPattern matches %name% occurrences.
var backRefPattern = regexp.MustCompile(`%([a-zA-Z0-9_]+)%`)

// CustomDataError is returned when a {{custom_data.key}} reference has no
// matching key in custom_data.
type CustomDataError struct {
	Key string
}

func (e *CustomDataError) Error() string {
	return fmt.Sprintf("promptsvc: custom_data key %q not found", e.Key)
}

// VariableReplacementService resolves {{...}} references in a prompt
// against already-accumulated structured output and caller-supplied
// custom data. Stateless: every method takes all the data it needs.
type VariableReplacementService struct{}

// NewVariableReplacementService constructs a VariableReplacementService.
func NewVariableReplacementService() *VariableReplacementService {
	return &VariableReplacementService{}
}

// IsVariablesPresent reports whether text contains any {{...}} reference.
func (VariableReplacementService) IsVariablesPresent(text string) bool {
	return staticVarPattern.MatchString(text)
}

// ReplaceVariablesInPrompt walks every {{...}} occurrence in prompt and
// dispatches to the static or custom-data resolver depending on the
// variable name's prefix.
func (v VariableReplacementService) ReplaceVariablesInPrompt(prompt string, structuredOutput map[string]any, customData map[string]any) (string, error) {
	var outerErr error
	result := staticVarPattern.ReplaceAllStringFunc(prompt, func(match string) string {
		if outerErr != nil {
			return match
		}
		name := staticVarPattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(name, "custom_data.") {
			key := strings.TrimPrefix(name, "custom_data.")
			replaced, err := v.replaceCustomDataVariable(key, customData)
			if err != nil {
				outerErr = err
				return match
			}
			return replaced
		}
		return v.replaceStaticVariable(name, structuredOutput)
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

// replaceStaticVariable substitutes {{name}} with the string form of
// structuredOutput[name]. A missing key renders as an empty string: only
// custom_data references are validated strictly (spec.md §4.5.3 step 1:
// "Missing keys ⇒ CustomDataError" applies to custom_data specifically).
func (VariableReplacementService) replaceStaticVariable(name string, structuredOutput map[string]any) string {
	val, ok := structuredOutput[name]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", val)
}

func (VariableReplacementService) replaceCustomDataVariable(key string, customData map[string]any) (string, error) {
	val, ok := customData[key]
	if !ok {
		return "", &CustomDataError{Key: key}
	}
	return fmt.Sprintf("%v", val), nil
}

// ExtractVariable implements the %name% back-reference substitution pass:
// every %name% in prompt is replaced with the string form of
// structuredOutput[name]. A reference to a prompt that has not produced
// output yet is a value error (spec.md §4.5.3 step 1).
func ExtractVariable(prompt string, structuredOutput map[string]any) (string, error) {
	var missing string
	result := backRefPattern.ReplaceAllStringFunc(prompt, func(match string) string {
		name := backRefPattern.FindStringSubmatch(match)[1]
		val, ok := structuredOutput[name]
		if !ok {
			missing = name
			return match
		}
		return fmt.Sprintf("%v", val)
	})
	if missing != "" {
		return "", fmt.Errorf("promptsvc: back-reference %%%s%% has no prior output", missing)
	}
	return result, nil
}
