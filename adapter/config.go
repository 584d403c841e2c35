package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// InstanceConfig is the decrypted adapter-instance document returned by
// platform.PlatformHelper.GetAdapterConfig: an adapter id plus an opaque
// metadata blob whose shape is adapter-specific.
type InstanceConfig struct {
	AdapterID       string
	AdapterMetadata json.RawMessage
}

// ValidateConfig validates raw adapter metadata against schema (a JSON
// Schema document), the same way the registry validates tool-spec payloads
// against a declared schema before accepting them.
func ValidateConfig(schemaDoc, payload map[string]any) error {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaDoc); err != nil {
		return fmt.Errorf("adapter: add schema resource: %w", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("adapter: compile schema: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("adapter: invalid config: %w", err)
	}
	return nil
}
