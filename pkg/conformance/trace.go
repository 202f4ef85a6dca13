// Package conformance implements the Conformance Kit: the CellRuntime
// abstraction, the canonical Memory Clerk acceptance scenario,
// and the Replay Verifier that re-derives trace decisions independently.
package conformance

import (
	"time"

	"github.com/agentsentry/governance/pkg/budget"
)

// EventType enumerates every kind of event a CellRuntime can emit.
type EventType string

const (
	EventMemoryRead             EventType = "memory_read"
	EventMemoryWriteProposed    EventType = "memory_write_proposed"
	EventMemoryWriteCommitted   EventType = "memory_write_committed"
	EventMemoryWriteBlocked     EventType = "memory_write_blocked"
	EventModelInfer             EventType = "model_infer"
	EventToolInvoke             EventType = "tool_invoke"
	EventCoherenceCheck         EventType = "coherence_check"
	EventPrivilegeChange        EventType = "privilege_change"
	EventRunStart               EventType = "run_start"
	EventRunEnd                 EventType = "run_end"
)

// BudgetSnapshot is a point-in-time copy of the Economic Governor's
// counters, captured with every trace event.
type BudgetSnapshot map[budget.Dimension]int64

// TraceEvent is one entry in a run's trace:
// {seq, ts, type, payload, decision, budgetSnapshot}.
type TraceEvent struct {
	Seq            int            `json:"seq"`
	Ts             time.Time      `json:"ts"`
	Type           EventType      `json:"type"`
	Payload        map[string]any `json:"payload"`
	Decision       string         `json:"decision"`
	BudgetSnapshot BudgetSnapshot `json:"budgetSnapshot"`
}
