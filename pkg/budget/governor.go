// Package budget implements the budget half of the Coherence Scheduler &
// Economic Governor: monotonically non-decreasing per-run counters
// checked against configured soft (warn) and hard (stop)
// thresholds.
package budget

import (
	"fmt"
	"sync"
)

// Dimension identifies one of the Economic Governor's tracked counters.
type Dimension string

const (
	Tokens       Dimension = "tokens"
	ToolCalls    Dimension = "toolCalls"
	StorageBytes Dimension = "storageBytes"
	TimeMs       Dimension = "timeMs"
	CostUsd      Dimension = "costUsd"
)

// Limit configures a soft warning threshold and a hard stop threshold for
// one dimension. A zero Hard disables the hard stop for that dimension.
type Limit struct {
	Soft int64
	Hard int64
}

// Decision is the governor's verdict after recording a delta against a
// dimension.
type Decision struct {
	Allowed   bool
	Warning   bool
	Dimension Dimension
	Value     int64
	Reason    string
}

// Governor tracks monotone counters for a single run and enforces
// configured limits. Limits are set once at construction; counters only
// ever increase within a run's lifetime.
type Governor struct {
	mu      sync.Mutex
	limits  map[Dimension]Limit
	counts  map[Dimension]int64
	warned  map[Dimension]bool
}

// NewGovernor constructs a Governor with the given per-dimension limits.
// Dimensions without a configured limit are tracked but never blocked.
func NewGovernor(limits map[Dimension]Limit) *Governor {
	return &Governor{
		limits: limits,
		counts: make(map[Dimension]int64),
		warned: make(map[Dimension]bool),
	}
}

// Record adds delta to dimension's running total and evaluates it against
// the configured limit. delta must be non-negative; counters are monotone
// within a run.
func (g *Governor) Record(dimension Dimension, delta int64) Decision {
	if delta < 0 {
		panic(fmt.Sprintf("budget: negative delta %d for dimension %s violates monotonicity", delta, dimension))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.counts[dimension] += delta
	value := g.counts[dimension]

	limit, hasLimit := g.limits[dimension]
	if !hasLimit {
		return Decision{Allowed: true, Dimension: dimension, Value: value, Reason: "no limit configured"}
	}

	if limit.Hard > 0 && value > limit.Hard {
		return Decision{
			Allowed:   false,
			Dimension: dimension,
			Value:     value,
			Reason:    fmt.Sprintf("budget-exceeded: %s at %d exceeds hard limit %d", dimension, value, limit.Hard),
		}
	}

	if limit.Soft > 0 && value > limit.Soft && !g.warned[dimension] {
		g.warned[dimension] = true
		return Decision{
			Allowed:   true,
			Warning:   true,
			Dimension: dimension,
			Value:     value,
			Reason:    fmt.Sprintf("soft warning: %s at %d exceeds soft limit %d", dimension, value, limit.Soft),
		}
	}

	return Decision{Allowed: true, Dimension: dimension, Value: value, Reason: "within limits"}
}

// Snapshot returns a defensive copy of every tracked counter.
func (g *Governor) Snapshot() map[Dimension]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[Dimension]int64, len(g.counts))
	for k, v := range g.counts {
		out[k] = v
	}
	return out
}

// Value returns the current counter for a dimension.
func (g *Governor) Value(dimension Dimension) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[dimension]
}

// AggregateDecision folds a slice of per-dimension Decisions into a single
// governing outcome: a hard stop in any dimension is terminal; otherwise a
// warning in any dimension is surfaced; otherwise allowed.
func AggregateDecision(decisions []Decision) Decision {
	var warning *Decision
	for i := range decisions {
		d := decisions[i]
		if !d.Allowed {
			return d
		}
		if d.Warning && warning == nil {
			warning = &d
		}
	}
	if warning != nil {
		return *warning
	}
	return Decision{Allowed: true, Reason: "within limits"}
}
