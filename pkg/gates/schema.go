package gates

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolParamSchemaGate validates a tool call's parameters against a JSON
// Schema registered for that tool name: compile once at registration,
// validate many times at call time, kept separate from the allowlist
// decision so the two can be composed independently by a caller's gate
// pipeline.
type ToolParamSchemaGate struct {
	mu     sync.RWMutex
	schema map[string]*jsonschema.Schema
}

// NewToolParamSchemaGate creates a gate with no registered schemas. A tool
// with no registered schema always passes.
func NewToolParamSchemaGate() *ToolParamSchemaGate {
	return &ToolParamSchemaGate{schema: make(map[string]*jsonschema.Schema)}
}

// RegisterSchema compiles schemaJSON (a JSON Schema document, 2020-12
// draft) and binds it to toolName. An empty schemaJSON clears any
// previously registered schema for toolName.
func (g *ToolParamSchemaGate) RegisterSchema(toolName, schemaJSON string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if schemaJSON == "" {
		delete(g.schema, toolName)
		return nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://agentsentry.local/gates/tool-params/%s.schema.json", toolName)
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("tool param schema gate: load schema for %q: %w", toolName, err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("tool param schema gate: compile schema for %q: %w", toolName, err)
	}
	g.schema[toolName] = compiled
	return nil
}

// Evaluate validates params against toolName's registered schema, if any.
func (g *ToolParamSchemaGate) Evaluate(toolName string, params map[string]any) GateResult {
	g.mu.RLock()
	schema, ok := g.schema[toolName]
	g.mu.RUnlock()

	if !ok || schema == nil {
		return GateResult{Decision: Allow, GateName: "tool-param-schema", Reason: "no schema registered for " + toolName}
	}

	if params == nil {
		return GateResult{
			Decision: Block,
			GateName: "tool-param-schema",
			Reason:   "tool " + toolName + " requires parameters but none were supplied",
		}
	}

	if err := schema.Validate(params); err != nil {
		return GateResult{
			Decision: Block,
			GateName: "tool-param-schema",
			Reason:   fmt.Sprintf("tool %s parameters failed schema validation: %v", toolName, err),
		}
	}

	return GateResult{Decision: Allow, GateName: "tool-param-schema", Reason: "parameters conform to registered schema"}
}
