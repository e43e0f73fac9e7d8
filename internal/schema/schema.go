// Package schema derives JSON-Schema parameter maps from Go struct types,
// for use as a provider.ToolDefinition's InputSchema. Adapted from the
// teacher's schema.go, generalized from an Anthropic-specific wrapper
// type to a plain map[string]any every provider adapter's ConvertTools
// can consume directly.
package schema

import (
	"github.com/invopop/jsonschema"
)

// Generate reflects Go struct type T into a JSON-Schema object map with
// "type", "properties", and "required" keys. Struct tags drive the
// result: `json:"name,omitempty"` for the field name and optionality,
// `jsonschema:"required,description=..."` for the description text.
func Generate[T any]() map[string]any {
	var zero T
	s := jsonschema.Reflect(&zero)
	root := extractRoot(s)

	m := map[string]any{"type": "object"}
	if props := schemaProperties(root); props != nil {
		m["properties"] = props
	}
	if len(root.Required) > 0 {
		m["required"] = root.Required
	}
	return m
}

// extractRoot resolves the root schema, following $ref to $defs if needed.
func extractRoot(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Ref != "" && s.Definitions != nil {
		for _, def := range s.Definitions {
			if def.Type == "object" {
				return def
			}
		}
	}
	return s
}

// schemaProperties converts an ordered map of properties into a plain
// map[string]any.
func schemaProperties(s *jsonschema.Schema) map[string]any {
	if s.Properties == nil {
		return nil
	}
	props := make(map[string]any)
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		props[pair.Key] = propertySchema(pair.Value)
	}
	return props
}

// propertySchema converts a single property schema to a serializable map.
func propertySchema(s *jsonschema.Schema) map[string]any {
	m := make(map[string]any)

	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Default != nil {
		m["default"] = s.Default
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}

	// Pointer fields: invopop/jsonschema represents nullable types as anyOf.
	if len(s.AnyOf) > 0 {
		for _, sub := range s.AnyOf {
			if sub.Type != "null" && sub.Type != "" {
				m["type"] = sub.Type
				break
			}
		}
	}

	if s.Properties != nil {
		m["type"] = "object"
		m["properties"] = schemaProperties(s)
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	}

	if s.Items != nil {
		m["items"] = propertySchema(s.Items)
	}

	return m
}
