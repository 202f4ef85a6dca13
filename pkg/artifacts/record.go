package artifacts

import (
	"fmt"

	"github.com/agentsentry/governance/pkg/crypto"
)

// Lineage links an artifact to the envelope that sealed it and to the
// artifacts it was derived from.
type Lineage struct {
	SealingEnvelopeID string   `json:"sealingEnvelopeId,omitempty"`
	ParentArtifacts   []string `json:"parentArtifacts,omitempty"`
}

// Artifact is a signed production-output record with lineage.
// Content is kept out of the signed body: the signature covers every field
// except Signature and Content itself.
type Artifact struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	RunEventID  string            `json:"runEventId,omitempty"`
	CellID      string            `json:"cellId,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Lineage     Lineage           `json:"lineage"`
	ContentHash string            `json:"contentHash"`
	ContentSize int               `json:"contentSize"`
	CreatedAt   int64             `json:"createdAt"`
	Signature   string            `json:"signature"`
	Content     []byte            `json:"-"`
}

// signableBody is every Artifact field except Signature and Content.
type signableBody struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	RunEventID  string            `json:"runEventId,omitempty"`
	CellID      string            `json:"cellId,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Lineage     Lineage           `json:"lineage"`
	ContentHash string            `json:"contentHash"`
	ContentSize int               `json:"contentSize"`
	CreatedAt   int64             `json:"createdAt"`
}

func (a *Artifact) body() signableBody {
	return signableBody{
		ID:          a.ID,
		Kind:        a.Kind,
		RunEventID:  a.RunEventID,
		CellID:      a.CellID,
		Tags:        a.Tags,
		Lineage:     a.Lineage,
		ContentHash: a.ContentHash,
		ContentSize: a.ContentSize,
		CreatedAt:   a.CreatedAt,
	}
}

// RecordParams bundles the inputs to Ledger.Record.
type RecordParams struct {
	Kind       string
	RunEventID string
	CellID     string
	Tags       map[string]string
	Lineage    Lineage
	// Payload is either a string (serialized as UTF-8 bytes directly) or an
	// arbitrary value serialized via canonical_json.
	Payload interface{}
}

// payloadBytes returns the UTF-8 serialization of a string payload, or the
// canonical JSON serialization of any other payload.
func payloadBytes(payload interface{}) ([]byte, error) {
	if s, ok := payload.(string); ok {
		return []byte(s), nil
	}
	canon, err := crypto.CanonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("artifacts: canonicalize payload: %w", err)
	}
	return canon, nil
}
