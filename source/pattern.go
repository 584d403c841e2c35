package source

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// extensionSetGlobs expands a named FileExtensionSet into the glob patterns
// it stands for (spec.md §4.9 step 3). Patterns are lower-case; matching is
// always performed case-insensitively.
var extensionSetGlobs = map[FileExtensionSet][]string{
	ExtensionSetPDFDocuments:  {"*.pdf"},
	ExtensionSetTextDocuments: {"*.txt", "*.doc", "*.docx", "*.rtf", "*.md", "*.csv", "*.xls", "*.xlsx"},
	ExtensionSetImages:        {"*.png", "*.jpg", "*.jpeg", "*.tiff", "*.bmp", "*.gif"},
}

// supportedFormats is the flattened set of every extension the connector
// will accept, independent of which extension sets a caller asked for
// (spec.md §4.9 step 3, "also verify the file format is in the supported
// set").
var supportedFormats = func() map[string]bool {
	out := map[string]bool{}
	for _, globs := range extensionSetGlobs {
		for _, g := range globs {
			out[strings.TrimPrefix(g, "*")] = true
		}
	}
	return out
}()

// ResolvePatterns turns the requested extension sets into glob patterns,
// defaulting to "*" (match everything supported) when none are given.
func ResolvePatterns(sets []FileExtensionSet) []string {
	if len(sets) == 0 {
		return []string{"*"}
	}
	var patterns []string
	for _, s := range sets {
		patterns = append(patterns, extensionSetGlobs[s]...)
	}
	if len(patterns) == 0 {
		return []string{"*"}
	}
	return patterns
}

// MatchesAny reports whether fileName matches any of patterns, case
// insensitively (spec.md §4.9 step 3).
func MatchesAny(patterns []string, fileName string) bool {
	lower := strings.ToLower(fileName)
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		ok, err := doublestar.Match(strings.ToLower(p), lower)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// IsSupportedFormat reports whether fileName's extension is in the
// connector's overall supported set, regardless of the requested patterns.
func IsSupportedFormat(fileName string) bool {
	lower := strings.ToLower(fileName)
	idx := strings.LastIndex(lower, ".")
	if idx < 0 {
		return false
	}
	return supportedFormats[lower[idx:]]
}
