// Package memorygate implements the Memory Write Gate: an
// ordered, fail-closed sequence of checks run against every proposed memory
// write, modeled on the kernel enforcement gate's bind-then-check shape.
package memorygate

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Authority describes who is attempting a write and what they're permitted
// to do.
type Authority struct {
	ID                 string
	Namespaces         []string
	MaxWritesPerMinute int
	CanOverwrite       bool
	CanDelete          bool
	TrustLevel         string // "high" | "medium" | "low"
}

func (a Authority) allowsNamespace(ns string) bool {
	for _, n := range a.Namespaces {
		if n == ns {
			return true
		}
	}
	return false
}

// Op is the kind of write being proposed.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// WriteRequest is a proposed memory write.
type WriteRequest struct {
	Authority Authority
	Key       string
	Namespace string
	Value     interface{}
	ValueHash string
	Existing  bool
	Op        Op
}

// Decision is the gate's verdict on a WriteRequest.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// SecretsHook scans a serialized value for secret material before a write
// commits. It mirrors the Enforcement Gates' secrets gate so the Memory
// Write Gate can defer to the same detection logic without importing it
// directly (pkg/gates depends on pkg/memorygate's Decision shape, not the
// reverse).
type SecretsHook func(serializedValue string) (blocked bool, reason string)

// Gate is the Memory Write Gate. One Gate instance owns rate limiters and
// contradiction history for every authority it has seen.
type Gate struct {
	mu              sync.Mutex
	limiters        map[string]*rate.Limiter
	contradictions  map[string][]contradictionEntry // key = namespace+"/"+key
	trackContradict bool
	secretsHook     SecretsHook
	clock           func() time.Time
}

type contradictionEntry struct {
	valueHash string
	at        time.Time
}

// Option configures a Gate at construction time.
type Option func(*Gate)

// WithContradictionTracking enables contradiction tracking across repeated
// writes to the same (namespace, key).
func WithContradictionTracking() Option {
	return func(g *Gate) { g.trackContradict = true }
}

// WithSecretsHook installs an external gate hook run against the serialized
// value of every write.
func WithSecretsHook(hook SecretsHook) Option {
	return func(g *Gate) { g.secretsHook = hook }
}

// NewGate constructs a Memory Write Gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		limiters:       make(map[string]*rate.Limiter),
		contradictions: make(map[string][]contradictionEntry),
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithClock overrides the gate's clock for deterministic testing.
func (g *Gate) WithClock(clock func() time.Time) *Gate {
	g.clock = clock
	return g
}

func (g *Gate) limiterFor(authorityID string, maxPerMinute int) *rate.Limiter {
	l, ok := g.limiters[authorityID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(maxPerMinute)/60.0), maxPerMinute)
		g.limiters[authorityID] = l
	}
	return l
}

// Contradiction records a detected value-hash mismatch for a repeated key.
type Contradiction struct {
	Namespace    string
	Key          string
	PriorHash    string
	NewHash      string
	EscalatedLow bool
}

// Evaluate runs the ordered check sequence and returns the
// first failing rule's decision, or an allow decision if every rule passes.
// The written value's hash is recorded for future contradiction checks only
// on an allowed outcome.
func (g *Gate) Evaluate(req WriteRequest) (Decision, *Contradiction) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// 1. Namespace authorization.
	if !req.Authority.allowsNamespace(req.Namespace) {
		return Decision{Allowed: false, Reason: fmt.Sprintf("authority %s is not authorized for namespace %q", req.Authority.ID, req.Namespace)}, nil
	}

	// 2. Rate limit.
	if req.Authority.MaxWritesPerMinute > 0 {
		limiter := g.limiterFor(req.Authority.ID, req.Authority.MaxWritesPerMinute)
		if !limiter.AllowN(g.clock(), 1) {
			return Decision{Allowed: false, Reason: fmt.Sprintf("authority %s exceeded %d writes per minute", req.Authority.ID, req.Authority.MaxWritesPerMinute)}, nil
		}
	}

	// 3. Capability check.
	if req.Op == OpDelete && !req.Authority.CanDelete {
		return Decision{Allowed: false, Reason: fmt.Sprintf("authority %s lacks delete capability", req.Authority.ID)}, nil
	}
	if req.Existing && req.Op != OpDelete && !req.Authority.CanOverwrite {
		return Decision{Allowed: false, Reason: fmt.Sprintf("authority %s lacks overwrite capability", req.Authority.ID)}, nil
	}

	// 4. Contradiction tracking (optional).
	var contradiction *Contradiction
	if g.trackContradict {
		contradiction = g.checkContradictionLocked(req)
	}

	// 5. Optional external gate hooks (secrets on serialized value).
	if g.secretsHook != nil {
		if s, ok := req.Value.(string); ok {
			if blocked, reason := g.secretsHook(s); blocked {
				return Decision{Allowed: false, Reason: reason}, contradiction
			}
		}
	}

	g.recordWriteLocked(req)

	return Decision{Allowed: true, Reason: "Write committed"}, contradiction
}

func contradictionKey(namespace, key string) string { return namespace + "/" + key }

func (g *Gate) checkContradictionLocked(req WriteRequest) *Contradiction {
	ck := contradictionKey(req.Namespace, req.Key)
	entries := g.contradictions[ck]
	if len(entries) == 0 {
		return nil
	}
	last := entries[len(entries)-1]
	if last.valueHash == req.ValueHash {
		return nil
	}
	return &Contradiction{
		Namespace:    req.Namespace,
		Key:          req.Key,
		PriorHash:    last.valueHash,
		NewHash:      req.ValueHash,
		EscalatedLow: req.Authority.TrustLevel == "low",
	}
}

func (g *Gate) recordWriteLocked(req WriteRequest) {
	ck := contradictionKey(req.Namespace, req.Key)
	g.contradictions[ck] = append(g.contradictions[ck], contradictionEntry{
		valueHash: req.ValueHash,
		at:        g.clock(),
	})
}
