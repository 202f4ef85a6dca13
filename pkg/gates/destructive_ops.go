package gates

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

type destructiveRule struct {
	id   string
	expr string
}

// destructiveRules is the fixed pattern set: commands or tool params
// matching any rule require confirmation before they run.
var destructiveRules = []destructiveRule{
	{"rm-rf", `command.contains("rm -rf")`},
	{"git-push-force", `command.contains("git push") && command.contains("--force")`},
	{"git-reset-hard", `command.contains("git reset --hard")`},
	{"git-clean-fd", `command.contains("git clean -fd") || command.contains("git clean -df")`},
	{"sql-drop-truncate-alter", `command.matches("(?i)(drop |truncate |alter table.*drop)")`},
	{"sql-delete-from", `command.matches("(?i)delete from \\w+")`},
	{"k8s-delete-all", `command.matches("(?i)(kubectl|helm) delete.*(--all|namespace)")`},
	{"windows-format", `command.matches("(?i)format [a-z]:")`},
	{"windows-del", `command.matches("(?i)del (/s|/f)")`},
}

// DestructiveOpsGate matches commands and tool params against a fixed
// pattern set of destructive operations. Rules compile once into cached
// cel.Program values and are evaluated against a single "command" string
// variable per call.
type DestructiveOpsGate struct {
	env      *cel.Env
	programs map[string]cel.Program
}

// NewDestructiveOpsGate compiles the fixed rule set into CEL programs.
func NewDestructiveOpsGate() (*DestructiveOpsGate, error) {
	env, err := cel.NewEnv(cel.Variable("command", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("gates: create CEL env: %w", err)
	}

	programs := make(map[string]cel.Program, len(destructiveRules))
	for _, rule := range destructiveRules {
		ast, issues := env.Compile(rule.expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("gates: compile rule %s: %w", rule.id, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("gates: build program for rule %s: %w", rule.id, err)
		}
		programs[rule.id] = prg
	}

	return &DestructiveOpsGate{env: env, programs: programs}, nil
}

// Evaluate checks a command (or serialized tool params) against every
// destructive-ops rule and aggregates the triggered set into one result.
func (g *DestructiveOpsGate) Evaluate(command string) GateResult {
	var triggered []string
	for _, rule := range destructiveRules {
		prg := g.programs[rule.id]
		out, _, err := prg.Eval(map[string]any{"command": command})
		if err != nil {
			continue
		}
		if b, ok := out.Value().(bool); ok && b {
			triggered = append(triggered, rule.id)
		}
	}

	if len(triggered) == 0 {
		return GateResult{Decision: Allow, GateName: "destructive-ops", Reason: "no destructive pattern matched"}
	}

	return GateResult{
		Decision:       RequireConfirmation,
		GateName:       "destructive-ops",
		Reason:         "command matches a destructive operation pattern",
		TriggeredRules: triggered,
		Remediation:    "review the rollback plan before confirming this operation",
	}
}
