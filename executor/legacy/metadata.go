package legacy

import (
	"encoding/json"
	"os"
)

// readMetadataJSON loads path as a JSON object, treating a missing file as
// an empty object rather than an error (spec.md §6.3: METADATA.json is
// created lazily by whichever handler writes to it first).
func readMetadataJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func writeMetadataJSON(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
