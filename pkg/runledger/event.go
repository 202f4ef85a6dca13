// Package runledger implements the Run Ledger: RunEvent creation,
// mutation until finalize, and the per-event evaluator pipeline.
package runledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentsentry/governance/pkg/crypto"
)

// Violation records a single policy or gate violation observed during a run.
type Violation struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	GateName    string `json:"gateName,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// RunEvent is created at run start and mutates until Finalize seals it.
// After sealing it is immutable and hashable.
type RunEvent struct {
	EventID          string      `json:"eventId"`
	TaskID           string      `json:"taskId"`
	Intent           string      `json:"intent"`
	GuidanceHash     string      `json:"guidanceHash"`
	ToolsUsed        []string    `json:"toolsUsed"`
	FilesTouched     []string    `json:"filesTouched"`
	Violations       []Violation `json:"violations"`
	OutcomeAccepted  bool        `json:"outcomeAccepted"`
	DurationMs       int64       `json:"durationMs"`
	SessionID        string      `json:"sessionId"`
	StartedAtMs      int64       `json:"-"`
	sealed           bool
}

// ContentHash returns SHA-256(canonical_json(event)). The hash must
// cover the sealed event only; callers must Finalize first.
func (e *RunEvent) ContentHash() (string, error) {
	if !e.sealed {
		return "", fmt.Errorf("runledger: cannot hash an event before Finalize")
	}
	return crypto.HashCanonical(e)
}

// IsSealed reports whether Finalize has been called.
func (e *RunEvent) IsSealed() bool { return e.sealed }

// Ledger creates and finalizes RunEvents and runs the evaluator pipeline.
type Ledger struct {
	mu        sync.Mutex
	events    map[string]*RunEvent
	results   map[string][]EvaluatorResult
	evaluators []Evaluator
	clock     func() time.Time
}

// NewLedger creates an empty run ledger.
func NewLedger(evaluators ...Evaluator) *Ledger {
	return &Ledger{
		events:     make(map[string]*RunEvent),
		results:    make(map[string][]EvaluatorResult),
		evaluators: evaluators,
		clock:      time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// CreateEvent starts a new, mutable RunEvent.
func (l *Ledger) CreateEvent(taskID, intent, guidanceHash, sessionID string) *RunEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := &RunEvent{
		EventID:      crypto.UUIDv4(),
		TaskID:       taskID,
		Intent:       intent,
		GuidanceHash: guidanceHash,
		SessionID:    sessionID,
		ToolsUsed:    []string{},
		FilesTouched: []string{},
		Violations:   []Violation{},
		StartedAtMs:  l.clock().UnixMilli(),
	}
	l.events[ev.EventID] = ev
	return ev
}

// RecordTool appends a tool name, deduplicated.
func (e *RunEvent) RecordTool(name string) {
	for _, t := range e.ToolsUsed {
		if t == name {
			return
		}
	}
	e.ToolsUsed = append(e.ToolsUsed, name)
}

// RecordFile appends a touched file path, deduplicated.
func (e *RunEvent) RecordFile(path string) {
	for _, f := range e.FilesTouched {
		if f == path {
			return
		}
	}
	e.FilesTouched = append(e.FilesTouched, path)
}

// RecordViolation appends a violation.
func (e *RunEvent) RecordViolation(v Violation) {
	e.Violations = append(e.Violations, v)
}

// FinalizeEvent seals event against further mutation, computes its duration,
// feeds it through the evaluator pipeline, and stores the results alongside
// the (now immutable) event.
func (l *Ledger) FinalizeEvent(e *RunEvent, outcomeAccepted bool) ([]EvaluatorResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.sealed {
		return nil, fmt.Errorf("runledger: event %s already finalized", e.EventID)
	}

	e.OutcomeAccepted = outcomeAccepted
	e.DurationMs = l.clock().UnixMilli() - e.StartedAtMs
	e.sealed = true

	results := make([]EvaluatorResult, 0, len(l.evaluators))
	for _, ev := range l.evaluators {
		results = append(results, ev.Evaluate(e))
	}
	l.results[e.EventID] = results

	return results, nil
}

// Get retrieves a stored event by id.
func (l *Ledger) Get(eventID string) (*RunEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.events[eventID]
	return e, ok
}

// Results retrieves the evaluator results recorded for an event.
func (l *Ledger) Results(eventID string) []EvaluatorResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.results[eventID]
}
