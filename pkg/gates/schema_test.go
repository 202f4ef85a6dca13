package gates_test

import (
	"testing"

	"github.com/agentsentry/governance/pkg/gates"
)

func TestToolParamSchemaGate_NoSchemaRegistered(t *testing.T) {
	g := gates.NewToolParamSchemaGate()
	result := g.Evaluate("shell.exec", map[string]any{"cmd": "ls"})
	if result.Decision != gates.Allow {
		t.Fatalf("expected allow with no schema registered, got %v: %s", result.Decision, result.Reason)
	}
}

func TestToolParamSchemaGate_ValidParamsPass(t *testing.T) {
	g := gates.NewToolParamSchemaGate()
	schema := `{
		"type": "object",
		"properties": {
			"path": {"type": "string"},
			"recursive": {"type": "boolean"}
		},
		"required": ["path"]
	}`
	if err := g.RegisterSchema("fs.delete", schema); err != nil {
		t.Fatalf("register schema: %v", err)
	}

	result := g.Evaluate("fs.delete", map[string]any{"path": "/tmp/x", "recursive": false})
	if result.Decision != gates.Allow {
		t.Fatalf("expected allow for valid params, got %v: %s", result.Decision, result.Reason)
	}
}

func TestToolParamSchemaGate_MissingRequiredFieldBlocks(t *testing.T) {
	g := gates.NewToolParamSchemaGate()
	schema := `{"type": "object", "required": ["path"]}`
	if err := g.RegisterSchema("fs.delete", schema); err != nil {
		t.Fatalf("register schema: %v", err)
	}

	result := g.Evaluate("fs.delete", map[string]any{"recursive": true})
	if result.Decision != gates.Block {
		t.Fatalf("expected block for missing required field, got %v", result.Decision)
	}
}

func TestToolParamSchemaGate_NilParamsWithSchemaBlocks(t *testing.T) {
	g := gates.NewToolParamSchemaGate()
	if err := g.RegisterSchema("fs.delete", `{"type": "object", "required": ["path"]}`); err != nil {
		t.Fatalf("register schema: %v", err)
	}

	result := g.Evaluate("fs.delete", nil)
	if result.Decision != gates.Block {
		t.Fatalf("expected block for nil params with schema requirement, got %v", result.Decision)
	}
}

func TestToolParamSchemaGate_EmptySchemaClears(t *testing.T) {
	g := gates.NewToolParamSchemaGate()
	if err := g.RegisterSchema("fs.delete", `{"type": "object", "required": ["path"]}`); err != nil {
		t.Fatalf("register schema: %v", err)
	}
	if err := g.RegisterSchema("fs.delete", ""); err != nil {
		t.Fatalf("clear schema: %v", err)
	}

	result := g.Evaluate("fs.delete", nil)
	if result.Decision != gates.Allow {
		t.Fatalf("expected allow after schema cleared, got %v", result.Decision)
	}
}

func TestToolParamSchemaGate_InvalidSchemaJSONErrors(t *testing.T) {
	g := gates.NewToolParamSchemaGate()
	if err := g.RegisterSchema("bad_tool", `{not valid json`); err == nil {
		t.Fatal("expected error registering invalid schema JSON")
	}
}
