package promptsvc

// SanitizeNA walks value recursively and replaces any string equal to "NA"
// (case-insensitive), at any nesting depth including inside slices and
// slices of maps, with nil (spec.md §4.5.3 step 8). Idempotent: running it
// twice yields the same result as running it once (spec.md §8.1).
func SanitizeNA(value any) any {
	switch v := value.(type) {
	case string:
		if isNA(v) {
			return nil
		}
		return v
	case map[string]any:
		for k, inner := range v {
			v[k] = SanitizeNA(inner)
		}
		return v
	case []any:
		for i, inner := range v {
			v[i] = SanitizeNA(inner)
		}
		return v
	default:
		return value
	}
}
