package conformance

import (
	"fmt"
	"os"
	"time"

	"github.com/agentsentry/governance/pkg/artifacts"
	"github.com/agentsentry/governance/pkg/budget"
	"github.com/agentsentry/governance/pkg/coherence"
	"github.com/agentsentry/governance/pkg/crypto"
	"github.com/agentsentry/governance/pkg/gates"
	"github.com/agentsentry/governance/pkg/memorygate"
	"github.com/agentsentry/governance/pkg/proofchain"
	"github.com/agentsentry/governance/pkg/runledger"
)

// MemoryClerkSummary is the canonical acceptance scenario's result shape:
// a single cell run whose outcome is independently checkable against
// fixed numbers.
type MemoryClerkSummary struct {
	MemoryReads          int
	MemoryWritesAttempted int
	MemoryWritesCommitted int
	MemoryWritesBlocked   int
	Outcome              string
	ProofChainLength      int
	VerifyChain           bool
	MemoryLineageLength   int
	ArtifactCount         int
	Trace                 []TraceEvent
	Envelope              *proofchain.Envelope
}

func deriveOutcome(committed, blocked int) string {
	switch {
	case committed > 0 && blocked > 0:
		return "restricted"
	case committed > 0:
		return "full"
	case blocked > 0:
		return "suspended"
	default:
		return "idle"
	}
}

// RunMemoryClerkCell executes the canonical Memory Clerk conformance
// scenario: a single agent reads 20 memory keys, performs one model
// inference, then proposes 5 memory writes. Coherence is driven down to
// 0.2 (crossing into Suspended) immediately before the third proposed
// write, so writes 1-2 commit and writes 3-5 are blocked purely on
// privilege, producing exactly one privilege_change event and an outcome
// of "restricted".
func RunMemoryClerkCell() (*MemoryClerkSummary, error) {
	signer, err := crypto.NewSigner([]byte("memory-clerk-conformance-key"))
	if err != nil {
		return nil, fmt.Errorf("conformance: build signer: %w", err)
	}

	scheduler := coherence.NewScheduler(coherence.DefaultThresholds())
	memGate := memorygate.NewGate()
	governor := budget.NewGovernor(map[budget.Dimension]budget.Limit{
		budget.Tokens: {Soft: 1000, Hard: 10000},
	})
	chain := proofchain.NewChain(signer)
	ledger := runledger.NewLedger()

	destructive, err := gates.NewDestructiveOpsGate()
	if err != nil {
		return nil, fmt.Errorf("conformance: build destructive-ops gate: %w", err)
	}
	secrets, err := gates.NewSecretsGate()
	if err != nil {
		return nil, fmt.Errorf("conformance: build secrets gate: %w", err)
	}

	artifactDir, err := os.MkdirTemp("", "memory-clerk-artifacts-")
	if err != nil {
		return nil, fmt.Errorf("conformance: create artifact store dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(artifactDir) }()
	artifactStore, err := artifacts.NewFileStore(artifactDir)
	if err != nil {
		return nil, fmt.Errorf("conformance: build artifact store: %w", err)
	}
	artifactSigner, err := crypto.NewSigner([]byte("memory-clerk-artifact-key"))
	if err != nil {
		return nil, fmt.Errorf("conformance: build artifact signer: %w", err)
	}
	artifactLedger := artifacts.NewLedger(artifactStore, artifactSigner, 0)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runtime := NewCellRuntime(Config{
		Scheduler:   scheduler,
		MemoryGate:  memGate,
		Governor:    governor,
		Chain:       chain,
		Ledger:      ledger,
		Artifacts:   artifactLedger,
		Destructive: destructive,
		Secrets:     secrets,
		Clock:       func() time.Time { return base },
	})

	authority := memorygate.Authority{
		ID:                 "memory-clerk",
		Namespaces:         []string{"clerk"},
		MaxWritesPerMinute: 1000,
		CanOverwrite:       true,
		CanDelete:          false,
		TrustLevel:         "high",
	}

	for i := 0; i < 20; i++ {
		runtime.Seed("clerk", fmt.Sprintf("entry-%d", i), fmt.Sprintf("value-%d", i))
	}

	const guidanceHash = "memory-clerk-guidance"
	runtime.Start("memory-clerk-task", "file ledger entries for the quarter", guidanceHash, "session-memory-clerk", "agent-memory-clerk")
	runtime.UpdateCoherence(0.9)

	for i := 0; i < 20; i++ {
		runtime.ReadMemory("clerk", fmt.Sprintf("entry-%d", i))
	}

	runtime.Infer("summarize the 20 ledger entries and propose 5 updates")

	committed, blocked := 0, 0
	for i := 1; i <= 5; i++ {
		if i == 3 {
			runtime.UpdateCoherence(0.2)
		}
		result := runtime.ProposeWrite(authority, "clerk", fmt.Sprintf("entry-%d", i), fmt.Sprintf("updated-value-%d", i), memorygate.OpUpdate, true)
		if result.Committed {
			committed++
		} else {
			blocked++
		}
	}

	outcome := deriveOutcome(committed, blocked)
	end, err := runtime.End(committed > 0, guidanceHash)
	if err != nil {
		return nil, err
	}

	verified, err := chain.VerifyChain()
	if err != nil {
		return nil, fmt.Errorf("conformance: verify chain: %w", err)
	}

	return &MemoryClerkSummary{
		MemoryReads:           20,
		MemoryWritesAttempted: 5,
		MemoryWritesCommitted: committed,
		MemoryWritesBlocked:   blocked,
		Outcome:               outcome,
		ProofChainLength:      chain.GetLength(),
		VerifyChain:           verified,
		MemoryLineageLength:   len(end.Envelope.MemoryLineage),
		ArtifactCount:         len(artifactLedger.GetByCell(runtime.agentID)),
		Trace:                 end.Trace,
		Envelope:              end.Envelope,
	}, nil
}
