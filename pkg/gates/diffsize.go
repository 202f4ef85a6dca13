package gates

import "fmt"

const defaultDiffSizeThreshold = 300

// DiffSizeGate warns when an edit's line count exceeds a configured
// threshold, encouraging the edit to be staged rather than applied whole.
type DiffSizeGate struct {
	threshold int
}

// NewDiffSizeGate creates a gate with threshold lines; 0 uses the
// default of 300.
func NewDiffSizeGate(threshold int) *DiffSizeGate {
	if threshold <= 0 {
		threshold = defaultDiffSizeThreshold
	}
	return &DiffSizeGate{threshold: threshold}
}

// Evaluate checks a proposed edit's changed-line count.
func (g *DiffSizeGate) Evaluate(linesChanged int) GateResult {
	if linesChanged <= g.threshold {
		return GateResult{Decision: Allow, GateName: "diff-size", Reason: "within diff size threshold"}
	}

	return GateResult{
		Decision:    Warn,
		GateName:    "diff-size",
		Reason:      fmt.Sprintf("edit changes %d lines, exceeding threshold %d", linesChanged, g.threshold),
		Remediation: "consider splitting this edit into smaller staged changes",
		Metadata:    map[string]any{"linesChanged": linesChanged, "threshold": g.threshold},
	}
}
