package evolution_test

import (
	"testing"

	"github.com/agentsentry/governance/pkg/crypto"
	"github.com/agentsentry/governance/pkg/evolution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) *evolution.Pipeline {
	t.Helper()
	signer, err := crypto.NewSigner([]byte("evolution-test-key"))
	require.NoError(t, err)
	return evolution.NewPipeline(signer)
}

func identicalEvaluator() evolution.EvaluatorFunc {
	return func(trace evolution.GoldenTrace) (evolution.TraceOutcome, error) {
		return evolution.TraceOutcome{
			Decisions: []string{"allow", "allow"},
			Metrics:   map[string]float64{"successRate": 1.0},
		}, nil
	}
}

func goldenTraces(n int) []evolution.GoldenTrace {
	traces := make([]evolution.GoldenTrace, n)
	for i := range traces {
		traces[i] = evolution.GoldenTrace{ID: "trace-" + string(rune('a'+i)), Inputs: []string{"x", "y"}}
	}
	return traces
}

func TestPropose_SignsAndSetsStatusSigned(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "tighten diff gate"})
	require.NoError(t, err)
	assert.Equal(t, evolution.StatusSigned, proposal.Status)
	assert.NotEmpty(t, proposal.Signature)
}

func TestHappyPath_IdenticalEvaluatorPromotesAfterAllStages(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x"})
	require.NoError(t, err)

	eval := identicalEvaluator()
	result, err := p.Simulate(proposal.ProposalID, goldenTraces(2), eval, eval)
	require.NoError(t, err)
	assert.Equal(t, float64(0), result.DivergenceScore)
	assert.True(t, result.Passed)

	cmp, err := p.Compare(proposal.ProposalID, result, 0)
	require.NoError(t, err)
	assert.True(t, cmp.Approved)

	rollout, err := p.Stage(proposal.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, "canary", rollout.Stages[0].Name)

	for i := 0; i < 3; i++ {
		advance, err := p.AdvanceStage(rollout.RolloutID, map[string]any{"divergence": 0.01})
		require.NoError(t, err)
		assert.True(t, advance.Advanced)
	}

	reloadedRollout, err := p.GetRollout(rollout.RolloutID)
	require.NoError(t, err)
	assert.Equal(t, evolution.RolloutCompleted, reloadedRollout.Status)

	reloadedProposal, err := p.Get(proposal.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, evolution.StatusPromoted, reloadedProposal.Status)
}

func TestAutoRollback_DivergenceBreachAtCanary(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x"})
	require.NoError(t, err)

	eval := identicalEvaluator()
	result, err := p.Simulate(proposal.ProposalID, goldenTraces(2), eval, eval)
	require.NoError(t, err)
	cmp, err := p.Compare(proposal.ProposalID, result, 0)
	require.NoError(t, err)
	require.True(t, cmp.Approved)

	rollout, err := p.Stage(proposal.ProposalID)
	require.NoError(t, err)

	advance, err := p.AdvanceStage(rollout.RolloutID, map[string]any{"divergence": 0.99})
	require.NoError(t, err)
	assert.False(t, advance.Advanced)
	assert.True(t, advance.RolledBack)

	reloadedProposal, err := p.Get(proposal.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, evolution.StatusRolledBack, reloadedProposal.Status)

	reloadedRollout, err := p.GetRollout(rollout.RolloutID)
	require.NoError(t, err)
	assert.Equal(t, evolution.TriFailed, reloadedRollout.Stages[0].Passed)

	again, err := p.AdvanceStage(rollout.RolloutID, map[string]any{"divergence": 0.01})
	require.NoError(t, err)
	assert.False(t, again.Advanced)
	assert.False(t, again.RolledBack)
	assert.Equal(t, "Rollout is rolled-back, not in-progress", again.Reason)
}

func TestSimulate_DivergingEvaluatorsProduceNonzeroScore(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x"})
	require.NoError(t, err)

	baseline := evolution.EvaluatorFunc(func(trace evolution.GoldenTrace) (evolution.TraceOutcome, error) {
		return evolution.TraceOutcome{Decisions: []string{"allow"}, Metrics: map[string]float64{"successRate": 1.0}}, nil
	})
	candidate := evolution.EvaluatorFunc(func(trace evolution.GoldenTrace) (evolution.TraceOutcome, error) {
		return evolution.TraceOutcome{Decisions: []string{"block"}, Metrics: map[string]float64{"successRate": 0.5}}, nil
	})

	result, err := p.Simulate(proposal.ProposalID, goldenTraces(1), baseline, candidate)
	require.NoError(t, err)
	assert.Greater(t, result.DivergenceScore, 0.0)
	assert.NotEmpty(t, result.DecisionDiffs)
}

func TestCompare_RejectsOnExcessiveDivergence(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x"})
	require.NoError(t, err)

	baseline := evolution.EvaluatorFunc(func(trace evolution.GoldenTrace) (evolution.TraceOutcome, error) {
		return evolution.TraceOutcome{Decisions: []string{"allow"}, Metrics: map[string]float64{}}, nil
	})
	candidate := evolution.EvaluatorFunc(func(trace evolution.GoldenTrace) (evolution.TraceOutcome, error) {
		return evolution.TraceOutcome{Decisions: []string{"block"}, Metrics: map[string]float64{}}, nil
	})

	result, err := p.Simulate(proposal.ProposalID, goldenTraces(1), baseline, candidate)
	require.NoError(t, err)

	cmp, err := p.Compare(proposal.ProposalID, result, 0.01)
	require.NoError(t, err)
	assert.False(t, cmp.Approved)

	reloaded, err := p.Get(proposal.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, evolution.StatusRejected, reloaded.Status)
}

func TestCompare_RejectsOnMetricRegression(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x"})
	require.NoError(t, err)

	baseline := evolution.EvaluatorFunc(func(trace evolution.GoldenTrace) (evolution.TraceOutcome, error) {
		return evolution.TraceOutcome{Decisions: []string{"allow"}, Metrics: map[string]float64{"successRate": 1.0}}, nil
	})
	candidate := evolution.EvaluatorFunc(func(trace evolution.GoldenTrace) (evolution.TraceOutcome, error) {
		return evolution.TraceOutcome{Decisions: []string{"allow"}, Metrics: map[string]float64{"successRate": 0.8}}, nil
	})

	result, err := p.Simulate(proposal.ProposalID, goldenTraces(1), baseline, candidate)
	require.NoError(t, err)

	cmp, err := p.Compare(proposal.ProposalID, result, 1.0)
	require.NoError(t, err)
	assert.False(t, cmp.Approved)
	assert.Contains(t, cmp.Reason, "regressed")
}

func TestPropose_RejectsInvalidSemver(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x", TargetVersion: "not-a-version"})
	assert.Error(t, err)
}

func TestStage_DeepClonesIndependentStageState(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x"})
	require.NoError(t, err)

	eval := identicalEvaluator()
	result, err := p.Simulate(proposal.ProposalID, goldenTraces(1), eval, eval)
	require.NoError(t, err)
	_, err = p.Compare(proposal.ProposalID, result, 0)
	require.NoError(t, err)

	rolloutA, err := p.Stage(proposal.ProposalID)
	require.NoError(t, err)

	proposal2, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "y"})
	require.NoError(t, err)
	result2, err := p.Simulate(proposal2.ProposalID, goldenTraces(1), eval, eval)
	require.NoError(t, err)
	_, err = p.Compare(proposal2.ProposalID, result2, 0)
	require.NoError(t, err)
	rolloutB, err := p.Stage(proposal2.ProposalID)
	require.NoError(t, err)

	_, err = p.AdvanceStage(rolloutA.RolloutID, map[string]any{"divergence": 0.01})
	require.NoError(t, err)

	reloadedB, err := p.GetRollout(rolloutB.RolloutID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloadedB.CurrentStage, "advancing one rollout must not affect another's independent stage state")
}

func TestRollback_IsTerminal(t *testing.T) {
	p := newTestPipeline(t)
	proposal, err := p.Propose(evolution.ProposeParams{Kind: evolution.KindRuleModify, Title: "x"})
	require.NoError(t, err)

	eval := identicalEvaluator()
	result, err := p.Simulate(proposal.ProposalID, goldenTraces(1), eval, eval)
	require.NoError(t, err)
	_, err = p.Compare(proposal.ProposalID, result, 0)
	require.NoError(t, err)
	rollout, err := p.Stage(proposal.ProposalID)
	require.NoError(t, err)

	require.NoError(t, p.Rollback(rollout.RolloutID, "manual stop"))

	reloaded, err := p.GetRollout(rollout.RolloutID)
	require.NoError(t, err)
	assert.Equal(t, "manual stop", reloaded.RollbackReason)

	err = p.Rollback(rollout.RolloutID, "again")
	assert.Error(t, err)
}
