package proofchain

import "context"

// EnvelopeStore persists proof chain envelopes beyond process memory, so a
// chain survives restarts and can be inspected by external auditors.
type EnvelopeStore interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, env *Envelope) error
	Get(ctx context.Context, envelopeID string) (*Envelope, bool, error)
	Tip(ctx context.Context) (*Envelope, bool, error)
	All(ctx context.Context) ([]*Envelope, error)
}
