package memorygate_test

import (
	"testing"
	"time"

	"github.com/agentsentry/governance/pkg/memorygate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseAuthority() memorygate.Authority {
	return memorygate.Authority{
		ID:                 "agent-1",
		Namespaces:         []string{"scratch"},
		MaxWritesPerMinute: 10,
		CanOverwrite:       true,
		CanDelete:          true,
		TrustLevel:         "high",
	}
}

func TestEvaluate_RejectsUnauthorizedNamespace(t *testing.T) {
	g := memorygate.NewGate()
	req := memorygate.WriteRequest{
		Authority: baseAuthority(),
		Namespace: "restricted",
		Key:       "k",
		Op:        memorygate.OpCreate,
	}

	dec, _ := g.Evaluate(req)
	assert.False(t, dec.Allowed)
}

func TestEvaluate_RejectsOverwriteWithoutCapability(t *testing.T) {
	g := memorygate.NewGate()
	auth := baseAuthority()
	auth.CanOverwrite = false

	req := memorygate.WriteRequest{
		Authority: auth,
		Namespace: "scratch",
		Key:       "k",
		Existing:  true,
		Op:        memorygate.OpUpdate,
	}

	dec, _ := g.Evaluate(req)
	assert.False(t, dec.Allowed)
}

func TestEvaluate_RejectsDeleteWithoutCapability(t *testing.T) {
	g := memorygate.NewGate()
	auth := baseAuthority()
	auth.CanDelete = false

	req := memorygate.WriteRequest{
		Authority: auth,
		Namespace: "scratch",
		Key:       "k",
		Op:        memorygate.OpDelete,
	}

	dec, _ := g.Evaluate(req)
	assert.False(t, dec.Allowed)
}

func TestEvaluate_AllowsWithinCapabilitiesAndNamespace(t *testing.T) {
	g := memorygate.NewGate()
	req := memorygate.WriteRequest{
		Authority: baseAuthority(),
		Namespace: "scratch",
		Key:       "k",
		ValueHash: "h1",
		Op:        memorygate.OpCreate,
	}

	dec, _ := g.Evaluate(req)
	assert.True(t, dec.Allowed)
	assert.Equal(t, "Write committed", dec.Reason)
}

func TestEvaluate_RateLimitBlocksBurstBeyondMax(t *testing.T) {
	start := time.Unix(0, 0)
	clock := start
	auth := baseAuthority()
	auth.MaxWritesPerMinute = 2

	g := memorygate.NewGate().WithClock(func() time.Time { return clock })

	req := memorygate.WriteRequest{Authority: auth, Namespace: "scratch", Key: "k", Op: memorygate.OpCreate}

	dec1, _ := g.Evaluate(req)
	dec2, _ := g.Evaluate(req)
	dec3, _ := g.Evaluate(req)

	assert.True(t, dec1.Allowed)
	assert.True(t, dec2.Allowed)
	assert.False(t, dec3.Allowed, "third write within the same instant must exceed burst of 2")
}

func TestEvaluate_ContradictionDetectedOnDifferingHash(t *testing.T) {
	g := memorygate.NewGate(memorygate.WithContradictionTracking())
	auth := baseAuthority()

	first := memorygate.WriteRequest{Authority: auth, Namespace: "scratch", Key: "k", ValueHash: "h1", Op: memorygate.OpCreate}
	second := memorygate.WriteRequest{Authority: auth, Namespace: "scratch", Key: "k", ValueHash: "h2", Existing: true, Op: memorygate.OpUpdate}

	dec1, c1 := g.Evaluate(first)
	require.True(t, dec1.Allowed)
	assert.Nil(t, c1)

	dec2, c2 := g.Evaluate(second)
	require.True(t, dec2.Allowed)
	require.NotNil(t, c2)
	assert.Equal(t, "h1", c2.PriorHash)
	assert.Equal(t, "h2", c2.NewHash)
}

func TestEvaluate_ContradictionEscalatesForLowTrust(t *testing.T) {
	g := memorygate.NewGate(memorygate.WithContradictionTracking())
	auth := baseAuthority()
	auth.TrustLevel = "low"

	first := memorygate.WriteRequest{Authority: auth, Namespace: "scratch", Key: "k", ValueHash: "h1", Op: memorygate.OpCreate}
	second := memorygate.WriteRequest{Authority: auth, Namespace: "scratch", Key: "k", ValueHash: "h2", Existing: true, Op: memorygate.OpUpdate}

	_, _ = g.Evaluate(first)
	_, c := g.Evaluate(second)

	require.NotNil(t, c)
	assert.True(t, c.EscalatedLow)
}

func TestEvaluate_SecretsHookBlocksMatchingValue(t *testing.T) {
	g := memorygate.NewGate(memorygate.WithSecretsHook(func(v string) (bool, string) {
		if v == "sk-secret" {
			return true, "secret detected"
		}
		return false, ""
	}))

	req := memorygate.WriteRequest{
		Authority: baseAuthority(),
		Namespace: "scratch",
		Key:       "k",
		Value:     "sk-secret",
		Op:        memorygate.OpCreate,
	}

	dec, _ := g.Evaluate(req)
	assert.False(t, dec.Allowed)
	assert.Equal(t, "secret detected", dec.Reason)
}
