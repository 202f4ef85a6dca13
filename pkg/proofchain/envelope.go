// Package proofchain implements the hash-chained, HMAC-signed evidence
// trail: every sealed RunEvent is wrapped in a ProofEnvelope whose
// previousHash equals the predecessor's contentHash, forming an
// append-only chain rooted at GENESIS_HASH.
package proofchain

import "github.com/agentsentry/governance/pkg/runledger"

// GenesisHash is the previousHash of envelope 0.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"

func init() {
	if len(GenesisHash) != 64 {
		panic("proofchain: GENESIS_HASH must be 64 hex chars")
	}
}

// MemoryLineageOp records one memory operation folded into an envelope.
type MemoryLineageOp struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace"`
	Op        string `json:"op"` // "read" | "write_committed" | "write_blocked"
	Hash      string `json:"hash"`
}

// EnvelopeMetadata carries the non-hashed-but-signed identity fields.
type EnvelopeMetadata struct {
	AgentID          string `json:"agentId"`
	SessionID        string `json:"sessionId"`
	ParentEnvelopeID string `json:"parentEnvelopeId,omitempty"`
}

// Envelope is a hash-chained, signed wrapper around a sealed RunEvent.
type Envelope struct {
	EnvelopeID     string            `json:"envelopeId"`
	RunEventID     string            `json:"runEventId"`
	TimestampIso   string            `json:"timestampIso"`
	ContentHash    string            `json:"contentHash"`
	PreviousHash   string            `json:"previousHash"`
	ToolCallHashes map[string]string `json:"toolCallHashes"`
	GuidanceHash   string            `json:"guidanceHash"`
	MemoryLineage  []MemoryLineageOp `json:"memoryLineage"`
	Metadata       EnvelopeMetadata  `json:"metadata"`
	Signature      string            `json:"signature"`
}

// signableBody is every envelope field except Signature, canonicalized and
// signed/verified: the envelope body (all fields except signature) is what
// gets hashed and HMAC-signed.
type signableBody struct {
	EnvelopeID     string            `json:"envelopeId"`
	RunEventID     string            `json:"runEventId"`
	TimestampIso   string            `json:"timestampIso"`
	ContentHash    string            `json:"contentHash"`
	PreviousHash   string            `json:"previousHash"`
	ToolCallHashes map[string]string `json:"toolCallHashes"`
	GuidanceHash   string            `json:"guidanceHash"`
	MemoryLineage  []MemoryLineageOp `json:"memoryLineage"`
	Metadata       EnvelopeMetadata  `json:"metadata"`
}

func (e *Envelope) body() signableBody {
	return signableBody{
		EnvelopeID:     e.EnvelopeID,
		RunEventID:     e.RunEventID,
		TimestampIso:   e.TimestampIso,
		ContentHash:    e.ContentHash,
		PreviousHash:   e.PreviousHash,
		ToolCallHashes: e.ToolCallHashes,
		GuidanceHash:   e.GuidanceHash,
		MemoryLineage:  e.MemoryLineage,
		Metadata:       e.Metadata,
	}
}

// ToolCall is one recorded tool invocation folded into an envelope's
// toolCallHashes map: hash = SHA-256(toolName ‖
// canonical_json(params) ‖ canonical_json(result)).
type ToolCall struct {
	ID     string
	Name   string
	Params interface{}
	Result interface{}
}

// MemoryOp is one memory read/write folded into memoryLineage.
type MemoryOp struct {
	Key       string
	Namespace string
	Op        string
	ValueHash string
}

// AppendInput bundles the data needed to append a new envelope.
type AppendInput struct {
	RunEvent   *runledger.RunEvent
	ToolCalls  []ToolCall
	MemoryOps  []MemoryOp
	GuidanceHash string
	Metadata   EnvelopeMetadata
}
