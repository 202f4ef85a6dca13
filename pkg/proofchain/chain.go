package proofchain

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentsentry/governance/pkg/crypto"
)

// Chain is the append-only, hash-linked, HMAC-signed proof chain.
// Envelopes are appended in order; previousHash[i] must equal
// contentHash[i-1], rooted at GenesisHash.
type Chain struct {
	mu        sync.Mutex
	envelopes []*Envelope
	byID      map[string]int
	signer    *crypto.Signer
	clock     func() time.Time
}

// NewChain creates an empty proof chain signed with the given HMAC key.
func NewChain(signer *crypto.Signer) *Chain {
	return &Chain{
		byID:   make(map[string]int),
		signer: signer,
		clock:  time.Now,
	}
}

// WithClock overrides the chain's clock for deterministic testing.
func (c *Chain) WithClock(clock func() time.Time) *Chain {
	c.clock = clock
	return c
}

// toolCallHash computes SHA-256(toolName ‖ canonical_json(params) ‖
// canonical_json(result)).
func toolCallHash(tc ToolCall) (string, error) {
	params, err := crypto.CanonicalJSON(tc.Params)
	if err != nil {
		return "", fmt.Errorf("proofchain: canonicalize tool call params: %w", err)
	}
	result, err := crypto.CanonicalJSON(tc.Result)
	if err != nil {
		return "", fmt.Errorf("proofchain: canonicalize tool call result: %w", err)
	}
	buf := make([]byte, 0, len(tc.Name)+len(params)+len(result))
	buf = append(buf, tc.Name...)
	buf = append(buf, params...)
	buf = append(buf, result...)
	return crypto.HashBytes(buf), nil
}

// Append seals input.RunEvent's hash into a new signed Envelope and links it
// to the chain's current tip. The RunEvent must already be finalized.
func (c *Chain) Append(input AppendInput) (*Envelope, error) {
	if input.RunEvent == nil {
		return nil, fmt.Errorf("proofchain: append requires a run event")
	}
	if !input.RunEvent.IsSealed() {
		return nil, fmt.Errorf("proofchain: run event %s must be finalized before appending", input.RunEvent.EventID)
	}

	contentHash, err := input.RunEvent.ContentHash()
	if err != nil {
		return nil, fmt.Errorf("proofchain: hash run event: %w", err)
	}

	toolCallHashes := make(map[string]string, len(input.ToolCalls))
	for _, tc := range input.ToolCalls {
		h, err := toolCallHash(tc)
		if err != nil {
			return nil, err
		}
		toolCallHashes[tc.ID] = h
	}

	lineage := make([]MemoryLineageOp, 0, len(input.MemoryOps))
	for _, op := range input.MemoryOps {
		lineage = append(lineage, MemoryLineageOp{
			Key:       op.Key,
			Namespace: op.Namespace,
			Op:        op.Op,
			Hash:      op.ValueHash,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prevHash := GenesisHash
	if n := len(c.envelopes); n > 0 {
		prevHash = c.envelopes[n-1].ContentHash
	}

	env := &Envelope{
		EnvelopeID:     crypto.UUIDv4(),
		RunEventID:     input.RunEvent.EventID,
		TimestampIso:   c.clock().UTC().Format(time.RFC3339Nano),
		ContentHash:    contentHash,
		PreviousHash:   prevHash,
		ToolCallHashes: toolCallHashes,
		GuidanceHash:   input.GuidanceHash,
		MemoryLineage:  lineage,
		Metadata:       input.Metadata,
	}

	sig, err := c.signer.SignCanonical(env.body())
	if err != nil {
		return nil, fmt.Errorf("proofchain: sign envelope: %w", err)
	}
	env.Signature = sig

	c.byID[env.EnvelopeID] = len(c.envelopes)
	c.envelopes = append(c.envelopes, env)

	return env, nil
}

// Verify checks a single envelope's signature against its body. It does not
// check chain linkage; use VerifyChain for that.
func (c *Chain) Verify(env *Envelope) (bool, error) {
	return c.signer.VerifyCanonical(env.body(), env.Signature)
}

// VerifyChain walks every envelope in order, checking that each signature is
// valid and that previousHash links match the predecessor's contentHash,
// rooted at GenesisHash.
func (c *Chain) VerifyChain() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prevHash := GenesisHash
	for i, env := range c.envelopes {
		ok, err := c.Verify(env)
		if err != nil {
			return false, fmt.Errorf("proofchain: verify envelope %d: %w", i, err)
		}
		if !ok {
			return false, nil
		}
		if env.PreviousHash != prevHash {
			return false, nil
		}
		prevHash = env.ContentHash
	}
	return true, nil
}

// GetTip returns the most recently appended envelope, if any.
func (c *Chain) GetTip() (*Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.envelopes) == 0 {
		return nil, false
	}
	return c.envelopes[len(c.envelopes)-1], true
}

// GetLength returns the number of envelopes appended so far.
func (c *Chain) GetLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.envelopes)
}

// GetByID looks up an envelope by its envelopeId.
func (c *Chain) GetByID(envelopeID string) (*Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.byID[envelopeID]
	if !ok {
		return nil, false
	}
	return c.envelopes[idx], true
}

// All returns a defensive copy of every envelope in chain order.
func (c *Chain) All() []*Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Envelope, len(c.envelopes))
	copy(out, c.envelopes)
	return out
}
