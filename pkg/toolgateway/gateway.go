// Package toolgateway implements the Deterministic Tool Gateway:
// allow/block decisions and call recording for tool invocations.
package toolgateway

import (
	"time"

	"github.com/agentsentry/governance/pkg/crypto"
	"github.com/agentsentry/governance/pkg/gates"
)

// EvaluateResult is the gateway's verdict for a single proposed tool call.
type EvaluateResult struct {
	Allowed bool
	Gate    gates.GateResult
}

// RecordedCall is the shape persisted for every allowed tool call, later
// folded into a proof envelope's tool-call hashes.
type RecordedCall struct {
	CallID     string         `json:"callId"`
	ToolName   string         `json:"toolName"`
	Params     map[string]any `json:"params"`
	Result     any            `json:"result"`
	Timestamp  time.Time      `json:"timestamp"`
	DurationMs int64          `json:"durationMs"`
}

// Gateway evaluates and records tool calls: an allowlist check ahead of
// dispatch, parameter validation against a per-tool JSON Schema, a
// structural check of any typed operation payload, an optional
// network/tool/data-class perimeter policy, and the destructive-ops gate
// run over serialized params — all aggregated into one decision.
type Gateway struct {
	allowlist   *gates.ToolAllowlistGate
	destructive *gates.DestructiveOpsGate
	schema      *gates.ToolParamSchemaGate
	perimeter   *gates.PerimeterGate
	clock       func() time.Time
}

// NewGateway creates a Gateway. destructive may be nil to skip that check
// (e.g. in tests that only care about the allowlist).
func NewGateway(allowlist *gates.ToolAllowlistGate, destructive *gates.DestructiveOpsGate) *Gateway {
	return &Gateway{allowlist: allowlist, destructive: destructive, clock: time.Now}
}

// WithClock overrides the gateway's clock, for deterministic tests.
func (g *Gateway) WithClock(clock func() time.Time) *Gateway {
	g.clock = clock
	return g
}

// WithSchemaGate attaches a JSON Schema param validator. When set, a tool
// call's params are checked against any schema registered for that tool
// name in addition to the allowlist and destructive-ops checks.
func (g *Gateway) WithSchemaGate(schema *gates.ToolParamSchemaGate) *Gateway {
	g.schema = schema
	return g
}

// WithPerimeterGate attaches a network/tool/data-class policy. When set,
// a call's params are consulted for an outbound "url", an "attested"
// flag, and a "dataClass" tag, and whichever of those are present are
// checked against the loaded perimeter policy alongside the allowlist.
func (g *Gateway) WithPerimeterGate(perimeter *gates.PerimeterGate) *Gateway {
	g.perimeter = perimeter
	return g
}

// Evaluate decides whether a tool call may proceed. Identical (name,
// params) always produce identical decisions — no clock or scheduling
// dependency enters the check.
func (g *Gateway) Evaluate(name string, params map[string]any) EvaluateResult {
	results := []gates.GateResult{g.allowlist.Evaluate(name)}

	if g.schema != nil {
		results = append(results, g.schema.Evaluate(name, params))
	}

	if op, ok := params["op"].(string); ok {
		if err := gates.ValidateOperation(gates.Operation(op), params["payload"]); err != nil {
			results = append(results, gates.GateResult{Decision: gates.Block, GateName: "operation-shape", Reason: err.Error()})
		} else {
			results = append(results, gates.GateResult{Decision: gates.Allow, GateName: "operation-shape", Reason: "payload matches " + op + " shape"})
		}
	}

	if g.perimeter != nil {
		attested, _ := params["attested"].(bool)
		results = append(results, g.perimeter.EvaluateTool(name, attested))
		if targetURL, ok := params["url"].(string); ok {
			results = append(results, g.perimeter.EvaluateNetwork(targetURL))
		}
		if dataClass, ok := params["dataClass"].(string); ok {
			results = append(results, g.perimeter.EvaluateData(dataClass))
		}
	}

	if g.destructive != nil {
		serialized, err := crypto.CanonicalJSON(params)
		if err == nil {
			results = append(results, g.destructive.Evaluate(string(serialized)))
		}
	}

	agg := gates.Aggregate(results)
	allowed := agg.Decision == gates.Allow || agg.Decision == gates.Warn
	return EvaluateResult{Allowed: allowed, Gate: agg}
}

// Record builds the call record for an allowed tool invocation. started is
// the time the call began; duration is computed against the gateway's
// clock at call time.
func (g *Gateway) Record(callID, toolName string, params map[string]any, result any, started time.Time) RecordedCall {
	now := g.clock()
	return RecordedCall{
		CallID:     callID,
		ToolName:   toolName,
		Params:     params,
		Result:     result,
		Timestamp:  now,
		DurationMs: now.Sub(started).Milliseconds(),
	}
}
