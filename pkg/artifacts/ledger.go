package artifacts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentsentry/governance/pkg/crypto"
)

// Ledger is the in-process Artifact Ledger: signed artifact records
// with lineage, multi-axis search, and FIFO eviction over a
// capacity bound.
type Ledger struct {
	mu           sync.Mutex
	store        Store
	signer       *crypto.Signer
	artifacts    map[string]*Artifact
	order        []string // insertion order, oldest first
	maxArtifacts int
	clock        func() time.Time
}

// NewLedger creates an Artifact Ledger backed by store for content bytes
// and signer for envelope signatures. maxArtifacts <= 0 disables eviction.
func NewLedger(store Store, signer *crypto.Signer, maxArtifacts int) *Ledger {
	return &Ledger{
		store:        store,
		signer:       signer,
		artifacts:    make(map[string]*Artifact),
		maxArtifacts: maxArtifacts,
		clock:        time.Now,
	}
}

// WithClock overrides the ledger's clock for deterministic testing.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// Record computes contentHash/contentSize over params.Payload, persists the
// raw bytes to the content store, signs the envelope body, and appends the
// artifact to the ledger, evicting the oldest artifact if over capacity.
func (l *Ledger) Record(ctx context.Context, params RecordParams) (*Artifact, error) {
	raw, err := payloadBytes(params.Payload)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a := &Artifact{
		ID:          crypto.UUIDv4(),
		Kind:        params.Kind,
		RunEventID:  params.RunEventID,
		CellID:      params.CellID,
		Tags:        params.Tags,
		Lineage:     params.Lineage,
		ContentHash: crypto.HashBytes(raw),
		ContentSize: len(raw),
		CreatedAt:   l.clock().UnixNano(),
	}

	sig, err := l.signer.SignCanonical(a.body())
	if err != nil {
		return nil, fmt.Errorf("artifacts: sign envelope: %w", err)
	}
	a.Signature = sig

	if _, err := l.store.Store(ctx, raw); err != nil {
		return nil, fmt.Errorf("artifacts: persist content: %w", err)
	}
	a.Content = raw

	l.artifacts[a.ID] = a
	l.order = append(l.order, a.ID)
	l.evictLocked()

	return a, nil
}

// evictLocked removes the oldest artifact(s) by createdAt while len(order)
// exceeds maxArtifacts. Ties are broken by insertion order, since order is
// already maintained in append order.
func (l *Ledger) evictLocked() {
	if l.maxArtifacts <= 0 {
		return
	}
	for len(l.order) > l.maxArtifacts {
		oldestIdx := 0
		oldestCreated := l.artifacts[l.order[0]].CreatedAt
		for i, id := range l.order {
			if l.artifacts[id].CreatedAt < oldestCreated {
				oldestCreated = l.artifacts[id].CreatedAt
				oldestIdx = i
			}
		}
		evictID := l.order[oldestIdx]
		delete(l.artifacts, evictID)
		l.order = append(l.order[:oldestIdx], l.order[oldestIdx+1:]...)
	}
}

// VerifyResult reports the three independent checks behind an artifact's
// overall verified status.
type VerifyResult struct {
	SignatureValid  bool `json:"signatureValid"`
	ContentIntact   bool `json:"contentIntact"`
	LineageComplete bool `json:"lineageComplete"`
	Verified        bool `json:"verified"`
}

// Verify checks signature validity, content integrity against contentHash,
// and whether every parent artifact referenced in lineage is resolvable. A
// missing artifact returns an all-false result.
func (l *Ledger) Verify(ctx context.Context, id string) VerifyResult {
	l.mu.Lock()
	a, ok := l.artifacts[id]
	l.mu.Unlock()
	if !ok {
		return VerifyResult{}
	}

	sigOK, _ := l.signer.VerifyCanonical(a.body(), a.Signature)

	contentOK := false
	if raw, err := l.store.Get(ctx, a.ContentHash); err == nil {
		contentOK = crypto.HashBytes(raw) == a.ContentHash
	}

	lineageOK := true
	for _, parentID := range a.Lineage.ParentArtifacts {
		l.mu.Lock()
		_, exists := l.artifacts[parentID]
		l.mu.Unlock()
		if !exists {
			lineageOK = false
			break
		}
	}

	return VerifyResult{
		SignatureValid:  sigOK,
		ContentIntact:   contentOK,
		LineageComplete: lineageOK,
		Verified:        sigOK && contentOK && lineageOK,
	}
}

// Get retrieves an artifact by ID.
func (l *Ledger) Get(id string) (*Artifact, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.artifacts[id]
	return a, ok
}

// GetByRun returns every artifact sealed by the given run event, sorted by
// createdAt ascending.
func (l *Ledger) GetByRun(runEventID string) []*Artifact {
	return l.search(func(a *Artifact) bool { return a.RunEventID == runEventID })
}

// GetByKind returns every artifact of the given kind, sorted by createdAt
// ascending.
func (l *Ledger) GetByKind(kind string) []*Artifact {
	return l.search(func(a *Artifact) bool { return a.Kind == kind })
}

// GetByCell returns every artifact produced by the given cell, sorted by
// createdAt ascending.
func (l *Ledger) GetByCell(cellID string) []*Artifact {
	return l.search(func(a *Artifact) bool { return a.CellID == cellID })
}

// Query is a multi-axis artifact search: every non-zero field must match,
// and Tags matching is conjunctive (all queried tags must be present with
// matching values).
type Query struct {
	Kind   string
	CellID string
	Tags   map[string]string
}

// Search filters artifacts by Query and returns them sorted by createdAt
// ascending.
func (l *Ledger) Search(q Query) []*Artifact {
	return l.search(func(a *Artifact) bool {
		if q.Kind != "" && a.Kind != q.Kind {
			return false
		}
		if q.CellID != "" && a.CellID != q.CellID {
			return false
		}
		for k, v := range q.Tags {
			if a.Tags[k] != v {
				return false
			}
		}
		return true
	})
}

func (l *Ledger) search(match func(*Artifact) bool) []*Artifact {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Artifact, 0)
	for _, a := range l.artifacts {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// GetLineage performs a DFS over lineage.parentArtifacts with cycle
// protection via a visited set, returning ancestors in first-visit order
// (parent before grandparent).
func (l *Ledger) GetLineage(id string) []*Artifact {
	l.mu.Lock()
	defer l.mu.Unlock()

	visited := make(map[string]bool)
	ancestors := make([]*Artifact, 0)

	var walk func(string)
	walk = func(current string) {
		a, ok := l.artifacts[current]
		if !ok {
			return
		}
		for _, parentID := range a.Lineage.ParentArtifacts {
			if visited[parentID] {
				continue
			}
			visited[parentID] = true
			parent, ok := l.artifacts[parentID]
			if !ok {
				continue
			}
			ancestors = append(ancestors, parent)
			walk(parentID)
		}
	}
	walk(id)
	return ancestors
}

// Size returns the current number of artifacts held by the ledger.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
