package conformance

import (
	"context"
	"fmt"
	"time"

	"github.com/agentsentry/governance/pkg/artifacts"
	"github.com/agentsentry/governance/pkg/budget"
	"github.com/agentsentry/governance/pkg/coherence"
	"github.com/agentsentry/governance/pkg/crypto"
	"github.com/agentsentry/governance/pkg/gates"
	"github.com/agentsentry/governance/pkg/memorygate"
	"github.com/agentsentry/governance/pkg/proofchain"
	"github.com/agentsentry/governance/pkg/runledger"
)

// CellRuntime orchestrates one cooperative, single-threaded cell run: every
// memory read and write, every inference, and every coherence update is
// evaluated in sequence against the Memory Write Gate, the Enforcement
// Gates, the Coherence Scheduler, and the Economic Governor, with the
// result folded into a RunEvent and finally sealed into the proof chain.
// Clock injection and strictly ordered, deterministic execution let a
// run be replayed and its trace independently re-derived.
type CellRuntime struct {
	scheduler   *coherence.Scheduler
	memoryGate  *memorygate.Gate
	governor    *budget.Governor
	chain       *proofchain.Chain
	ledger      *runledger.Ledger
	artifacts   *artifacts.Ledger
	destructive *gates.DestructiveOpsGate
	secrets     *gates.SecretsGate

	clock func() time.Time

	store        map[string]string // synthetic memory store, namespace/key -> value
	lastArtifact map[string]string // namespace/key -> most recent artifact ID committed for that key

	event      *runledger.RunEvent
	memoryOps  []proofchain.MemoryOp
	trace      []TraceEvent
	seq        int
	ts         time.Time
	agentID    string
	sessionID  string
}

// Config bundles the collaborators a CellRuntime needs. All fields are
// required except Clock, which defaults to time.Now.
type Config struct {
	Scheduler   *coherence.Scheduler
	MemoryGate  *memorygate.Gate
	Governor    *budget.Governor
	Chain       *proofchain.Chain
	Ledger      *runledger.Ledger
	Artifacts   *artifacts.Ledger // optional: records a signed artifact per committed memory write
	Destructive *gates.DestructiveOpsGate
	Secrets     *gates.SecretsGate
	Clock       func() time.Time
}

// NewCellRuntime constructs a CellRuntime from its collaborators.
func NewCellRuntime(cfg Config) *CellRuntime {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CellRuntime{
		scheduler:    cfg.Scheduler,
		memoryGate:   cfg.MemoryGate,
		governor:     cfg.Governor,
		chain:        cfg.Chain,
		ledger:       cfg.Ledger,
		artifacts:    cfg.Artifacts,
		destructive:  cfg.Destructive,
		secrets:      cfg.Secrets,
		clock:        clock,
		store:        make(map[string]string),
		lastArtifact: make(map[string]string),
	}
}

// Seed pre-populates the synthetic memory store so reads return real
// content instead of placeholder hashes.
func (c *CellRuntime) Seed(namespace, key, value string) {
	c.store[namespace+"/"+key] = value
}

func (c *CellRuntime) nextTs() time.Time {
	if c.seq == 0 {
		c.ts = c.clock()
	} else {
		c.ts = c.ts.Add(time.Millisecond)
	}
	return c.ts
}

func (c *CellRuntime) emit(eventType EventType, payload map[string]any, decision string) TraceEvent {
	ev := TraceEvent{
		Seq:            c.seq,
		Ts:             c.nextTs(),
		Type:           eventType,
		Payload:        payload,
		Decision:       decision,
		BudgetSnapshot: BudgetSnapshot(c.governor.Snapshot()),
	}
	c.seq++
	c.trace = append(c.trace, ev)
	return ev
}

// Start opens a new run: creates the sealed-until-End RunEvent and emits
// the run_start trace event.
func (c *CellRuntime) Start(taskID, intent, guidanceHash, sessionID, agentID string) {
	c.agentID = agentID
	c.sessionID = sessionID
	c.event = c.ledger.CreateEvent(taskID, intent, guidanceHash, sessionID)
	c.emit(EventRunStart, map[string]any{"taskId": taskID, "intent": intent}, "started")
}

// UpdateCoherence feeds a new coherence score through the Scheduler,
// emitting a coherence_check event and, if the band crossed a threshold, a
// single privilege_change event.
func (c *CellRuntime) UpdateCoherence(score float64) {
	level, transition := c.scheduler.Update(score)
	c.governor.Record(budget.Tokens, 1)
	c.emit(EventCoherenceCheck, map[string]any{"score": score}, string(level))
	if transition != nil {
		c.emit(EventPrivilegeChange, map[string]any{
			"previousLevel": string(transition.PreviousLevel),
			"newLevel":      string(transition.NewLevel),
		}, transition.Decision())
	}
}

// ReadMemory performs a memory read: reads always succeed (the Memory
// Write Gate governs writes only) and are folded into the proof chain's
// memory lineage.
func (c *CellRuntime) ReadMemory(namespace, key string) string {
	value := c.store[namespace+"/"+key]
	hash := crypto.SHA256Hex([]byte(value))
	c.governor.Record(budget.Tokens, 5)
	c.emit(EventMemoryRead, map[string]any{"namespace": namespace, "key": key}, "allowed")
	c.memoryOps = append(c.memoryOps, proofchain.MemoryOp{
		Key: key, Namespace: namespace, Op: "read", ValueHash: hash,
	})
	c.event.RecordFile(namespace + "/" + key)
	return value
}

// Infer records a model inference step.
func (c *CellRuntime) Infer(prompt string) {
	c.governor.Record(budget.Tokens, 10)
	c.emit(EventModelInfer, map[string]any{"prompt": prompt}, "inferred")
}

// WriteResult is the outcome of a single ProposeWrite call.
type WriteResult struct {
	Committed bool
	Reason    string
}

// ProposeWrite evaluates one memory write through the full stack: the
// privilege level derived by the Coherence Scheduler, the Memory Write
// Gate's ordered checks, and the Enforcement Gates run over the serialized
// value. A write commits iff every one of those checks passes; any
// failure blocks it and neither the Memory
// Write Gate's internal bookkeeping nor the proof chain's memory lineage
// records a committed write.
func (c *CellRuntime) ProposeWrite(authority memorygate.Authority, namespace, key, value string, op memorygate.Op, existing bool) WriteResult {
	c.governor.Record(budget.Tokens, 5)
	hash := crypto.SHA256Hex([]byte(value))
	c.emit(EventMemoryWriteProposed, map[string]any{
		"namespace": namespace, "key": key, "op": string(op), "authorityId": authority.ID,
	}, "proposed")

	level := c.scheduler.CurrentLevel()
	if !coherence.AllowsWrite(level) {
		reason := fmt.Sprintf("privilege level %q does not permit memory writes", level)
		c.emit(EventMemoryWriteBlocked, map[string]any{"namespace": namespace, "key": key, "reason": reason}, "blocked")
		return WriteResult{Committed: false, Reason: reason}
	}

	decision, _ := c.memoryGate.Evaluate(memorygate.WriteRequest{
		Authority: authority, Key: key, Namespace: namespace,
		Value: value, ValueHash: hash, Existing: existing, Op: op,
	})
	if !decision.Allowed {
		c.emit(EventMemoryWriteBlocked, map[string]any{"namespace": namespace, "key": key, "reason": decision.Reason}, "blocked")
		return WriteResult{Committed: false, Reason: decision.Reason}
	}

	var gateResults []gates.GateResult
	if c.destructive != nil {
		gateResults = append(gateResults, c.destructive.Evaluate(value))
	}
	if c.secrets != nil {
		gateResults = append(gateResults, c.secrets.Evaluate(value))
	}
	agg := gates.Aggregate(gateResults)
	if agg.Decision == gates.Block {
		c.emit(EventMemoryWriteBlocked, map[string]any{"namespace": namespace, "key": key, "reason": agg.Reason}, "blocked")
		return WriteResult{Committed: false, Reason: agg.Reason}
	}

	c.store[namespace+"/"+key] = value
	c.emit(EventMemoryWriteCommitted, map[string]any{"namespace": namespace, "key": key}, "committed")
	c.memoryOps = append(c.memoryOps, proofchain.MemoryOp{
		Key: key, Namespace: namespace, Op: "write_committed", ValueHash: hash,
	})
	c.event.RecordFile(namespace + "/" + key)
	c.recordArtifact(namespace, key, value)
	return WriteResult{Committed: true, Reason: "Write committed"}
}

// recordArtifact persists a committed memory write's new value to the
// Artifact Ledger, if one is configured, chaining it to the previous
// artifact recorded for the same namespace/key.
func (c *CellRuntime) recordArtifact(namespace, key, value string) {
	if c.artifacts == nil {
		return
	}
	storeKey := namespace + "/" + key
	var lineage artifacts.Lineage
	if parentID, ok := c.lastArtifact[storeKey]; ok {
		lineage.ParentArtifacts = []string{parentID}
	}
	a, err := c.artifacts.Record(context.Background(), artifacts.RecordParams{
		Kind:       "memory-write",
		RunEventID: c.event.TaskID,
		CellID:     c.agentID,
		Tags:       map[string]string{"namespace": namespace, "key": key},
		Lineage:    lineage,
		Payload:    value,
	})
	if err != nil {
		return
	}
	c.lastArtifact[storeKey] = a.ID
}

// InvokeTool records a deterministic tool invocation evaluated against the
// Enforcement Gates.
func (c *CellRuntime) InvokeTool(name string, params map[string]any) gates.GateResult {
	c.governor.Record(budget.ToolCalls, 1)
	var gateResults []gates.GateResult
	if cmd, ok := params["command"].(string); ok && c.destructive != nil {
		gateResults = append(gateResults, c.destructive.Evaluate(cmd))
	}
	agg := gates.Aggregate(gateResults)
	c.event.RecordTool(name)
	c.emit(EventToolInvoke, map[string]any{"toolName": name, "params": params}, string(agg.Decision))
	return agg
}

// EndResult is the summary returned once a run is finalized and sealed.
type EndResult struct {
	Envelope *proofchain.Envelope
	Trace    []TraceEvent
}

// End finalizes the run's RunEvent, appends it to the proof chain with the
// accumulated memory lineage, and emits the closing run_end trace event.
func (c *CellRuntime) End(outcomeAccepted bool, guidanceHash string) (*EndResult, error) {
	if _, err := c.ledger.FinalizeEvent(c.event, outcomeAccepted); err != nil {
		return nil, fmt.Errorf("conformance: finalize run event: %w", err)
	}

	env, err := c.chain.Append(proofchain.AppendInput{
		RunEvent:     c.event,
		MemoryOps:    c.memoryOps,
		GuidanceHash: guidanceHash,
		Metadata:     proofchain.EnvelopeMetadata{AgentID: c.agentID, SessionID: c.sessionID},
	})
	if err != nil {
		return nil, fmt.Errorf("conformance: append proof envelope: %w", err)
	}

	c.emit(EventRunEnd, map[string]any{"outcomeAccepted": outcomeAccepted}, "ended")

	return &EndResult{Envelope: env, Trace: c.trace}, nil
}

// Trace returns every event emitted so far, in sequence order.
func (c *CellRuntime) Trace() []TraceEvent {
	out := make([]TraceEvent, len(c.trace))
	copy(out, c.trace)
	return out
}
