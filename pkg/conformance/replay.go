package conformance

import (
	"fmt"

	"github.com/agentsentry/governance/pkg/coherence"
	"github.com/agentsentry/governance/pkg/gates"
	"github.com/google/go-cmp/cmp"
)

// Divergence records one trace event whose recorded decision didn't match
// what the Replay Verifier independently re-derived from the event's type
// and payload.
type Divergence struct {
	Seq      int
	Type     EventType
	Recorded string
	Expected string
	Diff     string
}

// Verifier re-derives every trace event's decision from its type and
// payload alone, per the documented per-type state machine, and reports
// any event where the recorded decision disagrees: an independent,
// offline re-check of a recorded decision trail over conformance trace
// events.
type Verifier struct {
	thresholds  coherence.Thresholds
	destructive *gates.DestructiveOpsGate
}

// NewVerifier builds a Replay Verifier. destructive may be nil, in which
// case tool_invoke events are not re-evaluated against the destructive-ops
// pattern set and are trusted as recorded.
func NewVerifier(thresholds coherence.Thresholds, destructive *gates.DestructiveOpsGate) *Verifier {
	return &Verifier{thresholds: thresholds, destructive: destructive}
}

// Verify walks a trace in order and returns every divergence found. An
// empty result means the trace is internally consistent: every recorded
// decision matches what its type and payload alone imply.
func (v *Verifier) Verify(trace []TraceEvent) []Divergence {
	var divergences []Divergence
	for _, ev := range trace {
		expected, ok := v.rederive(ev)
		if !ok {
			continue
		}
		if expected != ev.Decision {
			divergences = append(divergences, Divergence{
				Seq:      ev.Seq,
				Type:     ev.Type,
				Recorded: ev.Decision,
				Expected: expected,
				Diff:     cmp.Diff(expected, ev.Decision),
			})
		}
	}
	return divergences
}

// rederive computes the decision an event's type and payload imply,
// independent of what was actually recorded. The second return value is
// false for event types with no independently checkable decision.
func (v *Verifier) rederive(ev TraceEvent) (string, bool) {
	switch ev.Type {
	case EventMemoryRead:
		return "allowed", true
	case EventMemoryWriteProposed:
		return "proposed", true
	case EventMemoryWriteCommitted:
		return "committed", true
	case EventMemoryWriteBlocked:
		return "blocked", true
	case EventModelInfer:
		return "inferred", true
	case EventRunStart:
		return "started", true
	case EventRunEnd:
		return "ended", true
	case EventCoherenceCheck:
		score, ok := ev.Payload["score"].(float64)
		if !ok {
			return "", false
		}
		return string(coherence.DeriveLevel(score, v.thresholds)), true
	case EventPrivilegeChange:
		previous, _ := ev.Payload["previousLevel"].(string)
		newLevel, _ := ev.Payload["newLevel"].(string)
		return fmt.Sprintf("%s->%s", previous, newLevel), true
	case EventToolInvoke:
		return v.rederiveToolInvoke(ev)
	default:
		return "", false
	}
}

func (v *Verifier) rederiveToolInvoke(ev TraceEvent) (string, bool) {
	if v.destructive == nil {
		return "", false
	}
	params, ok := ev.Payload["params"].(map[string]any)
	if !ok {
		return "", false
	}
	command, ok := params["command"].(string)
	if !ok {
		return string(gates.Allow), true
	}
	result := v.destructive.Evaluate(command)
	return string(result.Decision), true
}

// ValidateTrace checks the structural trace invariants: seq values are
// dense and start at 0, timestamps are non-decreasing, and every budget
// dimension's snapshot value is non-decreasing across consecutive
// events. It returns one description per violation found.
func ValidateTrace(trace []TraceEvent) []string {
	var violations []string
	for i, ev := range trace {
		if ev.Seq != i {
			violations = append(violations, fmt.Sprintf("event at index %d has seq %d, want dense seq starting at 0", i, ev.Seq))
		}
		if i > 0 {
			prev := trace[i-1]
			if ev.Ts.Before(prev.Ts) {
				violations = append(violations, fmt.Sprintf("event seq %d has timestamp before seq %d", ev.Seq, prev.Seq))
			}
			for dim, value := range ev.BudgetSnapshot {
				if prevValue, ok := prev.BudgetSnapshot[dim]; ok && value < prevValue {
					violations = append(violations, fmt.Sprintf("event seq %d: budget dimension %s decreased from %d to %d", ev.Seq, dim, prevValue, value))
				}
			}
		}
	}
	return violations
}
