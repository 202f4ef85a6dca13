// Package observability provides governance-domain instrumentation helpers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Governance-domain semantic convention attributes.
var (
	// Run/cell attributes
	AttrRunID     = attribute.Key("governance.run.id")
	AttrAgentID   = attribute.Key("governance.agent.id")
	AttrSessionID = attribute.Key("governance.session.id")

	// Coherence/privilege attributes
	AttrPrivilegeLevel  = attribute.Key("governance.coherence.privilege")
	AttrCoherenceScore  = attribute.Key("governance.coherence.score")
	AttrPrivilegeChange = attribute.Key("governance.coherence.transition")

	// Memory write attributes
	AttrMemoryNamespace = attribute.Key("governance.memory.namespace")
	AttrMemoryKey       = attribute.Key("governance.memory.key")
	AttrMemoryOp        = attribute.Key("governance.memory.op")

	// Gate decision attributes
	AttrGateName     = attribute.Key("governance.gate.name")
	AttrGateDecision = attribute.Key("governance.gate.decision")
	AttrGateLatencyMs = attribute.Key("governance.gate.latency_ms")

	// Evolution pipeline attributes
	AttrEvolutionStage      = attribute.Key("governance.evolution.stage")
	AttrEvolutionDivergence = attribute.Key("governance.evolution.divergence")
	AttrEvolutionDecision   = attribute.Key("governance.evolution.decision")

	// Proof chain attributes
	AttrProofChainLength = attribute.Key("governance.proofchain.length")
	AttrProofVerified    = attribute.Key("governance.proofchain.verified")
)

// RunOperation creates attributes for a cell/run lifecycle event.
func RunOperation(runID, agentID, sessionID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrAgentID.String(agentID),
		AttrSessionID.String(sessionID),
	}
}

// CoherenceOperation creates attributes for a coherence check or privilege
// transition.
func CoherenceOperation(level string, score float64, transition string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrPrivilegeLevel.String(level),
		AttrCoherenceScore.Float64(score),
	}
	if transition != "" {
		attrs = append(attrs, AttrPrivilegeChange.String(transition))
	}
	return attrs
}

// MemoryOperation creates attributes for a memory read/write event.
func MemoryOperation(namespace, key, op string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrMemoryNamespace.String(namespace),
		AttrMemoryKey.String(key),
		AttrMemoryOp.String(op),
	}
}

// GateOperation creates attributes for an enforcement gate evaluation.
func GateOperation(gateName, decision string, latencyMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrGateName.String(gateName),
		AttrGateDecision.String(decision),
		AttrGateLatencyMs.Float64(latencyMs),
	}
}

// EvolutionOperation creates attributes for an evolution pipeline stage
// transition.
func EvolutionOperation(stage string, divergence float64, decision string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEvolutionStage.String(stage),
		AttrEvolutionDivergence.Float64(divergence),
		AttrEvolutionDecision.String(decision),
	}
}

// ProofChainOperation creates attributes for a proof chain append/verify.
func ProofChainOperation(length int64, verified bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrProofChainLength.Int64(length),
		AttrProofVerified.Bool(verified),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
