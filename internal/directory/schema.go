package directory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildDirectorySchema returns the JSON-Schema (draft 2020-12 subset) for the
// directory file as a generic map.
func buildDirectorySchema() map[string]any {
	staffProps := map[string]any{
		"id":   map[string]any{"type": "string", "minLength": 1},
		"name": map[string]any{"type": "string"},
	}
	locationProps := map[string]any{
		"id":   map[string]any{"type": "string", "minLength": 1},
		"name": map[string]any{"type": "string"},
		"staff": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           staffProps,
				"required":             []string{"id"},
			},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"locations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties":           locationProps,
					"required":             []string{"id"},
				},
			},
		},
		"required": []string{"locations"},
	}
}

// validateDirectoryJSON validates the raw directory file against the schema.
func validateDirectoryJSON(data []byte) error {
	b, err := json.Marshal(buildDirectorySchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("directory.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("directory.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal directory: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("directory does not match schema: %w", err)
	}
	return nil
}
