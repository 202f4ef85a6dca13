package evolution

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/agentsentry/governance/pkg/crypto"
	"github.com/agentsentry/governance/pkg/gates"
)

const defaultMaxDivergence = 0.3
const regressionTolerance = 0.05

// ProposeParams is the caller-supplied content for a new proposal.
type ProposeParams struct {
	Kind           ProposalKind
	Title          string
	Description    string
	Author         string
	TargetPath     string
	TargetVersion  string
	Diff           Diff
	Rationale      string
	RiskAssessment RiskAssessment
}

// Pipeline owns the in-process proposal and rollout state for a run. Same
// mutex-guarded map keyed by generated UUIDs with a signer for every
// mutating record already used by pkg/proofchain and pkg/artifacts in
// this module — the Evolution Pipeline is the third package to reuse
// that shape.
type Pipeline struct {
	mu        sync.Mutex
	signer    *crypto.Signer
	proposals map[string]*ChangeProposal
	rollouts  map[string]*StagedRollout
	clock     func() time.Time
}

// NewPipeline creates an empty Pipeline.
func NewPipeline(signer *crypto.Signer) *Pipeline {
	return &Pipeline{
		signer:    signer,
		proposals: make(map[string]*ChangeProposal),
		rollouts:  make(map[string]*StagedRollout),
		clock:     time.Now,
	}
}

// WithClock overrides the pipeline's clock, for deterministic tests.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// Propose creates and signs a new ChangeProposal; its status becomes signed.
func (p *Pipeline) Propose(params ProposeParams) (*ChangeProposal, error) {
	if params.TargetVersion != "" {
		if _, err := semver.NewVersion(params.TargetVersion); err != nil {
			return nil, fmt.Errorf("evolution: propose: invalid target version %q: %w", params.TargetVersion, err)
		}
	}

	proposal := &ChangeProposal{
		ProposalID:     crypto.UUIDv4(),
		Kind:           params.Kind,
		Title:          params.Title,
		Description:    params.Description,
		Author:         params.Author,
		TargetPath:     params.TargetPath,
		TargetVersion:  params.TargetVersion,
		Diff:           params.Diff,
		Rationale:      params.Rationale,
		RiskAssessment: params.RiskAssessment,
		CreatedAt:      p.clock(),
	}

	sig, err := p.signer.SignCanonical(proposal.signableBody())
	if err != nil {
		return nil, fmt.Errorf("evolution: propose: sign: %w", err)
	}
	proposal.Signature = sig
	proposal.Status = StatusSigned

	p.mu.Lock()
	p.proposals[proposal.ProposalID] = proposal
	p.mu.Unlock()

	return proposal, nil
}

// Get returns a proposal by id.
func (p *Pipeline) Get(proposalID string) (*ChangeProposal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proposal, ok := p.proposals[proposalID]
	if !ok {
		return nil, fmt.Errorf("evolution: unknown proposal %q", proposalID)
	}
	return proposal, nil
}

// Simulate runs every golden trace under both the baseline and candidate
// evaluators and computes the composite trace hashes and divergence score.
func (p *Pipeline) Simulate(proposalID string, traces []GoldenTrace, baseline, candidate Evaluator) (*SimulationResult, error) {
	p.mu.Lock()
	proposal, ok := p.proposals[proposalID]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("evolution: unknown proposal %q", proposalID)
	}
	if proposal.Status != StatusSigned {
		return nil, fmt.Errorf("evolution: proposal %q is %s, expected signed", proposalID, proposal.Status)
	}
	proposal.Status = StatusSimulating

	baselineOutcomes := make([]TraceOutcome, len(traces))
	candidateOutcomes := make([]TraceOutcome, len(traces))
	baselineHashes := make([]string, len(traces))
	candidateHashes := make([]string, len(traces))

	for i, trace := range traces {
		bOut, err := baseline.Evaluate(trace)
		if err != nil {
			return nil, fmt.Errorf("evolution: baseline evaluate trace %s: %w", trace.ID, err)
		}
		cOut, err := candidate.Evaluate(trace)
		if err != nil {
			return nil, fmt.Errorf("evolution: candidate evaluate trace %s: %w", trace.ID, err)
		}
		baselineOutcomes[i] = bOut
		candidateOutcomes[i] = cOut
		baselineHashes[i] = crypto.SHA256Hex([]byte(strings.Join(bOut.Decisions, ",")))
		candidateHashes[i] = crypto.SHA256Hex([]byte(strings.Join(cOut.Decisions, ",")))
	}

	baselineTraceHash := crypto.SHA256Hex([]byte(strings.Join(baselineHashes, ":")))
	candidateTraceHash := crypto.SHA256Hex([]byte(strings.Join(candidateHashes, ":")))

	result := &SimulationResult{
		ProposalID:         proposalID,
		BaselineTraceHash:  baselineTraceHash,
		CandidateTraceHash: candidateTraceHash,
		MetricsComparison: MetricsComparison{
			Baseline:  meanMetrics(baselineOutcomes),
			Candidate: meanMetrics(candidateOutcomes),
		},
	}

	if baselineTraceHash == candidateTraceHash {
		result.DivergenceScore = 0
		result.Passed = true
		result.Reason = "baseline and candidate produced identical trace hashes"
		proposal.Status = StatusCompared
		return result, nil
	}

	var diffs []DecisionDiff
	var weightSum float64
	for i := range traces {
		bDecisions := baselineOutcomes[i].Decisions
		cDecisions := candidateOutcomes[i].Decisions
		maxLen := len(bDecisions)
		if len(cDecisions) > maxLen {
			maxLen = len(cDecisions)
		}
		for seq := 0; seq < maxLen; seq++ {
			var bDec, cDec string
			missing := false
			if seq < len(bDecisions) {
				bDec = bDecisions[seq]
			} else {
				missing = true
			}
			if seq < len(cDecisions) {
				cDec = cDecisions[seq]
			} else {
				missing = true
			}
			if !missing && bDec == cDec {
				continue
			}
			sev := classifyDiff(bDec, cDec, missing)
			diffs = append(diffs, DecisionDiff{Seq: seq, Baseline: bDec, Candidate: cDec, Severity: sev})
			weightSum += severityWeight[sev]
		}
	}
	result.DecisionDiffs = diffs

	divergence := weightSum / float64(len(traces)*5)
	if divergence > 1 {
		divergence = 1
	}
	result.DivergenceScore = divergence
	result.Passed = true
	result.Reason = "simulation complete"

	proposal.Status = StatusCompared
	return result, nil
}

// classifyDiff ranks how severe a single decision divergence is. Missing
// entries are always high severity ("undefined"); present-but-different
// decisions are ranked by how far apart their gate severities are, when
// both sides parse as a known gates.Decision, or medium otherwise.
func classifyDiff(baseline, candidate string, missing bool) Severity {
	if missing {
		return SeverityUndef
	}
	bSev, bOk := gateSeverityOf(baseline)
	cSev, cOk := gateSeverityOf(candidate)
	if bOk && cOk {
		gap := bSev - cSev
		if gap < 0 {
			gap = -gap
		}
		switch {
		case gap >= 2:
			return SeverityHigh
		case gap == 1:
			return SeverityMedium
		default:
			return SeverityLow
		}
	}
	return SeverityMedium
}

func gateSeverityOf(decision string) (int, bool) {
	switch gates.Decision(decision) {
	case gates.Allow, gates.Warn, gates.RequireConfirmation, gates.Block:
		return gates.Severity(gates.Decision(decision)), true
	default:
		return 0, false
	}
}

func meanMetrics(outcomes []TraceOutcome) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range outcomes {
		for k, v := range o.Metrics {
			sums[k] += v
			counts[k]++
		}
	}
	means := make(map[string]float64, len(sums))
	for k, sum := range sums {
		means[k] = sum / float64(counts[k])
	}
	return means
}

// Compare rejects a simulation if its divergence score exceeds the
// maxDivergence threshold (default 0.3) or any metric regressed by more
// than 5% relative to baseline.
func (p *Pipeline) Compare(proposalID string, result *SimulationResult, maxDivergence float64) (CompareResult, error) {
	if maxDivergence <= 0 {
		maxDivergence = defaultMaxDivergence
	}

	p.mu.Lock()
	proposal, ok := p.proposals[proposalID]
	p.mu.Unlock()
	if !ok {
		return CompareResult{}, fmt.Errorf("evolution: unknown proposal %q", proposalID)
	}
	if proposal.Status != StatusCompared {
		return CompareResult{}, fmt.Errorf("evolution: proposal %q is %s, expected compared", proposalID, proposal.Status)
	}

	if result.DivergenceScore > maxDivergence {
		proposal.Status = StatusRejected
		return CompareResult{Approved: false, Reason: fmt.Sprintf("divergence score %.3f exceeds max %.3f", result.DivergenceScore, maxDivergence)}, nil
	}

	for name, baseVal := range result.MetricsComparison.Baseline {
		candVal, ok := result.MetricsComparison.Candidate[name]
		if !ok || baseVal == 0 {
			continue
		}
		relChange := (candVal - baseVal) / baseVal
		if relChange < -regressionTolerance {
			proposal.Status = StatusRejected
			return CompareResult{Approved: false, Reason: fmt.Sprintf("metric %s regressed %.1f%% relative to baseline", name, relChange*100)}, nil
		}
	}

	return CompareResult{Approved: true, Reason: "divergence and metrics within tolerance"}, nil
}

// Stage deep-clones the default rollout stages for an approved proposal
// and starts stage 0 immediately.
func (p *Pipeline) Stage(proposalID string) (*StagedRollout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal, ok := p.proposals[proposalID]
	if !ok {
		return nil, fmt.Errorf("evolution: unknown proposal %q", proposalID)
	}
	if proposal.Status != StatusCompared {
		return nil, fmt.Errorf("evolution: proposal %q is %s, expected compared", proposalID, proposal.Status)
	}

	stages := DefaultStages()
	now := p.clock()
	stages[0].StartedAt = &now

	rollout := &StagedRollout{
		RolloutID:    crypto.UUIDv4(),
		ProposalID:   proposalID,
		Stages:       stages,
		CurrentStage: 0,
		Status:       RolloutInProgress,
	}

	proposal.Status = StatusStaged
	p.rollouts[rollout.RolloutID] = rollout
	return rollout, nil
}

// GetRollout returns a rollout by id.
func (p *Pipeline) GetRollout(rolloutID string) (*StagedRollout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rollout, ok := p.rollouts[rolloutID]
	if !ok {
		return nil, fmt.Errorf("evolution: unknown rollout %q", rolloutID)
	}
	return rollout, nil
}

// AdvanceStage records metrics on the current stage. A divergence above
// the stage's threshold triggers an automatic rollback; otherwise the
// stage passes and the rollout advances, auto-promoting on its final
// stage.
func (p *Pipeline) AdvanceStage(rolloutID string, stageMetrics map[string]any) (AdvanceResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rollout, ok := p.rollouts[rolloutID]
	if !ok {
		return AdvanceResult{}, fmt.Errorf("evolution: unknown rollout %q", rolloutID)
	}
	if rollout.Status != RolloutInProgress {
		return AdvanceResult{Advanced: false, RolledBack: false, Reason: fmt.Sprintf("Rollout is %s, not in-progress", rollout.Status)}, nil
	}

	proposal := p.proposals[rollout.ProposalID]
	current := &rollout.Stages[rollout.CurrentStage]
	current.Metrics = stageMetrics

	divergence, _ := stageMetrics["divergence"].(float64)
	now := p.clock()

	if divergence > current.DivergenceThreshold {
		current.Passed = TriFailed
		current.CompletedAt = &now
		rollout.Status = RolloutRolledBack
		if proposal != nil {
			proposal.Status = StatusRolledBack
		}
		return AdvanceResult{Advanced: false, RolledBack: true, Reason: "stage divergence exceeded threshold"}, nil
	}

	current.Passed = TriPassed
	current.CompletedAt = &now

	if rollout.CurrentStage == len(rollout.Stages)-1 {
		rollout.Status = RolloutCompleted
		if proposal != nil {
			proposal.Status = StatusPromoted
		}
		return AdvanceResult{Advanced: true, Promoted: true, Reason: "final stage passed"}, nil
	}

	rollout.CurrentStage++
	rollout.Stages[rollout.CurrentStage].StartedAt = &now
	return AdvanceResult{Advanced: true, Reason: "stage passed, advanced to " + rollout.Stages[rollout.CurrentStage].Name}, nil
}

// Rollback terminally rolls back a rollout and its proposal.
func (p *Pipeline) Rollback(rolloutID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rollout, ok := p.rollouts[rolloutID]
	if !ok {
		return fmt.Errorf("evolution: unknown rollout %q", rolloutID)
	}
	if rollout.Status != RolloutInProgress {
		return fmt.Errorf("evolution: rollout %q is %s, not in-progress", rolloutID, rollout.Status)
	}

	rollout.Status = RolloutRolledBack
	rollout.RollbackReason = reason
	if proposal, ok := p.proposals[rollout.ProposalID]; ok {
		proposal.Status = StatusRolledBack
	}
	return nil
}

// Promote terminally promotes a rollout ahead of its remaining stages.
func (p *Pipeline) Promote(rolloutID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rollout, ok := p.rollouts[rolloutID]
	if !ok {
		return fmt.Errorf("evolution: unknown rollout %q", rolloutID)
	}
	if rollout.Status != RolloutInProgress {
		return fmt.Errorf("evolution: rollout %q is %s, not in-progress", rolloutID, rollout.Status)
	}

	rollout.Status = RolloutCompleted
	if proposal, ok := p.proposals[rollout.ProposalID]; ok {
		proposal.Status = StatusPromoted
	}
	return nil
}
