package schema

import "testing"

type sampleArgs struct {
	Path    string `json:"path" jsonschema:"required,description=Target path"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds"`
}

func TestGenerate_ProducesObjectSchemaWithRequired(t *testing.T) {
	m := Generate[sampleArgs]()

	if m["type"] != "object" {
		t.Fatalf("expected type object, got %v", m["type"])
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", m["properties"])
	}
	if _, ok := props["path"]; !ok {
		t.Fatalf("expected path property, got %v", props)
	}
	if _, ok := props["timeout"]; !ok {
		t.Fatalf("expected timeout property, got %v", props)
	}

	required, ok := m["required"].([]string)
	if !ok {
		t.Fatalf("expected required slice, got %T", m["required"])
	}
	if len(required) != 1 || required[0] != "path" {
		t.Fatalf("expected required=[path], got %v", required)
	}
}

func TestGenerate_PropertyDescriptionsPropagate(t *testing.T) {
	m := Generate[sampleArgs]()
	props := m["properties"].(map[string]any)
	path := props["path"].(map[string]any)
	if path["description"] != "Target path" {
		t.Fatalf("expected description to propagate, got %v", path["description"])
	}
}
