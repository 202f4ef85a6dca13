package proofchain_test

import (
	"testing"

	"github.com/agentsentry/governance/pkg/crypto"
	"github.com/agentsentry/governance/pkg/proofchain"
	"github.com/agentsentry/governance/pkg/runledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedEvent(t *testing.T, taskID string) *runledger.RunEvent {
	t.Helper()
	l := runledger.NewLedger()
	ev := l.CreateEvent(taskID, "intent", "guidance-hash", "session-1")
	_, err := l.FinalizeEvent(ev, true)
	require.NoError(t, err)
	return ev
}

func newChain(t *testing.T) *proofchain.Chain {
	t.Helper()
	signer, err := crypto.NewSigner([]byte("chain-test-key"))
	require.NoError(t, err)
	return proofchain.NewChain(signer)
}

func TestAppend_RejectsUnfinalizedEvent(t *testing.T) {
	c := newChain(t)
	l := runledger.NewLedger()
	ev := l.CreateEvent("task-1", "intent", "hash", "session-1")

	_, err := c.Append(proofchain.AppendInput{RunEvent: ev})
	assert.Error(t, err)
}

func TestAppend_FirstEnvelopeLinksToGenesis(t *testing.T) {
	c := newChain(t)
	ev := sealedEvent(t, "task-1")

	env, err := c.Append(proofchain.AppendInput{RunEvent: ev})
	require.NoError(t, err)
	assert.Equal(t, proofchain.GenesisHash, env.PreviousHash)
	assert.Equal(t, 1, c.GetLength())
}

func TestAppend_ChainsPreviousHash(t *testing.T) {
	c := newChain(t)
	ev1 := sealedEvent(t, "task-1")
	ev2 := sealedEvent(t, "task-2")

	first, err := c.Append(proofchain.AppendInput{RunEvent: ev1})
	require.NoError(t, err)
	second, err := c.Append(proofchain.AppendInput{RunEvent: ev2})
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.PreviousHash)

	tip, ok := c.GetTip()
	require.True(t, ok)
	assert.Equal(t, second.EnvelopeID, tip.EnvelopeID)
}

func TestVerifyChain_TrueForUntamperedChain(t *testing.T) {
	c := newChain(t)
	for i := 0; i < 3; i++ {
		ev := sealedEvent(t, "task")
		_, err := c.Append(proofchain.AppendInput{RunEvent: ev})
		require.NoError(t, err)
	}

	ok, err := c.VerifyChain()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyChain_FalseWhenEnvelopeTampered(t *testing.T) {
	c := newChain(t)
	ev := sealedEvent(t, "task-1")
	env, err := c.Append(proofchain.AppendInput{RunEvent: ev})
	require.NoError(t, err)

	env.GuidanceHash = "tampered"

	ok, err := c.VerifyChain()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToolCallHashes_RecordedPerCall(t *testing.T) {
	c := newChain(t)
	ev := sealedEvent(t, "task-1")

	env, err := c.Append(proofchain.AppendInput{
		RunEvent: ev,
		ToolCalls: []proofchain.ToolCall{
			{ID: "call-1", Name: "memory.write", Params: map[string]any{"k": "v"}, Result: map[string]any{"ok": true}},
		},
	})
	require.NoError(t, err)
	require.Contains(t, env.ToolCallHashes, "call-1")
	assert.Len(t, env.ToolCallHashes["call-1"], 64)
}

func TestMemoryLineage_PreservesOrderAndOp(t *testing.T) {
	c := newChain(t)
	ev := sealedEvent(t, "task-1")

	env, err := c.Append(proofchain.AppendInput{
		RunEvent: ev,
		MemoryOps: []proofchain.MemoryOp{
			{Key: "a", Namespace: "ns", Op: "read", ValueHash: "h1"},
			{Key: "b", Namespace: "ns", Op: "write_committed", ValueHash: "h2"},
		},
	})
	require.NoError(t, err)
	require.Len(t, env.MemoryLineage, 2)
	assert.Equal(t, "read", env.MemoryLineage[0].Op)
	assert.Equal(t, "write_committed", env.MemoryLineage[1].Op)
}

func TestExportImport_RoundTripsAndVerifies(t *testing.T) {
	c := newChain(t)
	for i := 0; i < 2; i++ {
		ev := sealedEvent(t, "task")
		_, err := c.Append(proofchain.AppendInput{RunEvent: ev})
		require.NoError(t, err)
	}

	token, err := c.Export()
	require.NoError(t, err)

	restored := newChain(t)
	err = restored.Import(token)
	require.NoError(t, err)
	assert.Equal(t, c.GetLength(), restored.GetLength())

	ok, err := restored.VerifyChain()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestImport_RejectsWrongSigningKey(t *testing.T) {
	c := newChain(t)
	ev := sealedEvent(t, "task-1")
	_, err := c.Append(proofchain.AppendInput{RunEvent: ev})
	require.NoError(t, err)

	token, err := c.Export()
	require.NoError(t, err)

	otherSigner, err := crypto.NewSigner([]byte("a-different-key"))
	require.NoError(t, err)
	other := proofchain.NewChain(otherSigner)

	err = other.Import(token)
	assert.Error(t, err)
}

func TestGetByID_FindsAppendedEnvelope(t *testing.T) {
	c := newChain(t)
	ev := sealedEvent(t, "task-1")
	env, err := c.Append(proofchain.AppendInput{RunEvent: ev})
	require.NoError(t, err)

	got, ok := c.GetByID(env.EnvelopeID)
	require.True(t, ok)
	assert.Equal(t, env.ContentHash, got.ContentHash)

	_, ok = c.GetByID("missing")
	assert.False(t, ok)
}
