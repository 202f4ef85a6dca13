// Package evolution implements the Evolution Pipeline: a signed proposal
// state machine that can only reach production through
// simulation, comparison, and staged rollout — never a direct config
// mutation.
package evolution

import "time"

// ProposalStatus is the proposal's position in the state machine:
//
//	draft → signed → simulating → compared → (rejected | staged) → (rolled-back | promoted)
type ProposalStatus string

const (
	StatusDraft      ProposalStatus = "draft"
	StatusSigned     ProposalStatus = "signed"
	StatusSimulating ProposalStatus = "simulating"
	StatusCompared   ProposalStatus = "compared"
	StatusRejected   ProposalStatus = "rejected"
	StatusStaged     ProposalStatus = "staged"
	StatusRolledBack ProposalStatus = "rolled-back"
	StatusPromoted   ProposalStatus = "promoted"
)

// ProposalKind enumerates what a proposal changes.
type ProposalKind string

const (
	KindRuleModify   ProposalKind = "rule-modify"
	KindRuleAdd      ProposalKind = "rule-add"
	KindRuleRemove   ProposalKind = "rule-remove"
	KindRulePromote  ProposalKind = "rule-promote"
	KindPolicyUpdate ProposalKind = "policy-update"
	KindToolConfig   ProposalKind = "tool-config"
	KindBudgetAdjust ProposalKind = "budget-adjust"
)

// RiskAssessment captures the proposal author's self-assessed risk.
type RiskAssessment struct {
	Level   string   `json:"level"`
	Factors []string `json:"factors"`
}

// Diff is the before/after pair a proposal changes.
type Diff struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// ChangeProposal is a signed, versioned record of a proposed rule, policy,
// tool-config, or budget change.
type ChangeProposal struct {
	ProposalID     string         `json:"proposalId"`
	Kind           ProposalKind   `json:"kind"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Author         string         `json:"author"`
	TargetPath     string         `json:"targetPath"`
	TargetVersion  string         `json:"targetVersion"`
	Diff           Diff           `json:"diff"`
	Rationale      string         `json:"rationale"`
	RiskAssessment RiskAssessment `json:"riskAssessment"`
	CreatedAt      time.Time      `json:"createdAt"`
	Signature      string         `json:"signature"`
	Status         ProposalStatus `json:"status"`
}

func (p *ChangeProposal) signableBody() ChangeProposal {
	cp := *p
	cp.Signature = ""
	cp.Status = ""
	return cp
}

// Severity ranks how much a per-trace decision diverged between baseline
// and candidate.
type Severity string

const (
	SeverityLow     Severity = "low"
	SeverityMedium  Severity = "medium"
	SeverityHigh    Severity = "high"
	SeverityUndef   Severity = "undefined"
)

var severityWeight = map[Severity]float64{
	SeverityLow:    0.1,
	SeverityMedium: 0.4,
	SeverityHigh:   1.0,
	SeverityUndef:  1.0,
}

// DecisionDiff is one golden trace's baseline-vs-candidate comparison.
type DecisionDiff struct {
	Seq      int      `json:"seq"`
	Baseline string   `json:"baseline"`
	Candidate string  `json:"candidate"`
	Severity Severity `json:"severity"`
}

// MetricsComparison holds the arithmetic-mean metrics for both runs.
type MetricsComparison struct {
	Baseline  map[string]float64 `json:"baseline"`
	Candidate map[string]float64 `json:"candidate"`
}

// SimulationResult is the output of simulating a proposal against golden
// traces under both the baseline and candidate evaluators.
type SimulationResult struct {
	ProposalID         string             `json:"proposalId"`
	BaselineTraceHash  string             `json:"baselineTraceHash"`
	CandidateTraceHash string             `json:"candidateTraceHash"`
	DivergenceScore    float64            `json:"divergenceScore"`
	DecisionDiffs      []DecisionDiff     `json:"decisionDiffs"`
	MetricsComparison  MetricsComparison  `json:"metricsComparison"`
	Passed             bool               `json:"passed"`
	Reason             string             `json:"reason"`
}

// CompareResult is the verdict from comparing a simulation against the
// divergence and regression thresholds.
type CompareResult struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// TriState mirrors a rollout stage's passed:tri-state field: a stage that
// hasn't run yet is neither passed nor failed.
type TriState int

const (
	TriUnknown TriState = iota
	TriPassed
	TriFailed
)

// Stage is one step of a staged rollout.
type Stage struct {
	Name                 string         `json:"name"`
	Percentage           float64        `json:"percentage"`
	DurationMs           int64          `json:"durationMs"`
	DivergenceThreshold  float64        `json:"divergenceThreshold"`
	Metrics              map[string]any `json:"metrics,omitempty"`
	Passed               TriState       `json:"passed"`
	StartedAt            *time.Time     `json:"startedAt,omitempty"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
}

// RolloutStatus is the overall status of a staged rollout.
type RolloutStatus string

const (
	RolloutInProgress RolloutStatus = "in-progress"
	RolloutCompleted  RolloutStatus = "completed"
	RolloutRolledBack RolloutStatus = "rolled-back"
)

// StagedRollout tracks a promoted-through-simulation proposal's phased
// exposure to production, one stage at a time.
type StagedRollout struct {
	RolloutID      string        `json:"rolloutId"`
	ProposalID     string        `json:"proposalId"`
	Stages         []Stage       `json:"stages"`
	CurrentStage   int           `json:"currentStage"`
	Status         RolloutStatus `json:"status"`
	RollbackReason string        `json:"rollbackReason,omitempty"`
}

// DefaultStages returns the default rollout stages:
// canary(5%, 60s, thr 0.20) → partial(50%, 300s, thr 0.25) → full(100%, 600s, thr 0.30).
func DefaultStages() []Stage {
	return []Stage{
		{Name: "canary", Percentage: 0.05, DurationMs: 60_000, DivergenceThreshold: 0.20},
		{Name: "partial", Percentage: 0.50, DurationMs: 300_000, DivergenceThreshold: 0.25},
		{Name: "full", Percentage: 1.00, DurationMs: 600_000, DivergenceThreshold: 0.30},
	}
}

// AdvanceResult is the outcome of advancing a rollout's current stage.
type AdvanceResult struct {
	Advanced   bool   `json:"advanced"`
	RolledBack bool   `json:"rolledBack"`
	Promoted   bool   `json:"promoted"`
	Reason     string `json:"reason"`
}
