package gates

import "strings"

// ToolAllowlistGate blocks any tool call whose name doesn't match a
// configured pattern: exact name, "*", or "prefix*".
type ToolAllowlistGate struct {
	patterns []string
}

// NewToolAllowlistGate creates a gate with the given patterns. An empty
// patterns list disables the gate entirely (every tool allowed).
func NewToolAllowlistGate(patterns []string) *ToolAllowlistGate {
	return &ToolAllowlistGate{patterns: patterns}
}

// Evaluate checks toolName against the configured patterns.
func (g *ToolAllowlistGate) Evaluate(toolName string) GateResult {
	if len(g.patterns) == 0 {
		return GateResult{Decision: Allow, GateName: "tool-allowlist", Reason: "no allowlist configured"}
	}

	for _, p := range g.patterns {
		if matchPattern(p, toolName) {
			return GateResult{Decision: Allow, GateName: "tool-allowlist", Reason: "matched pattern " + p}
		}
	}

	return GateResult{
		Decision: Block,
		GateName: "tool-allowlist",
		Reason:   "tool " + toolName + " matches no configured allowlist pattern",
	}
}

func matchPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == name
}
