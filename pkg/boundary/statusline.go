// Package boundary holds interface-only typed contracts for the control
// plane's producer/consumer edges (Statusline stream, headless-process
// initializer scaffolding): data shapes and the interfaces that move
// them, with no renderer or scaffolding implementation — those are
// explicit non-goals of the core (CLI surfaces, statusline rendering,
// and initializer/scaffolding code are named out of scope). Plain
// structs plus the interfaces a producer/consumer pair needs, no
// behavior baked in.
package boundary

import "time"

// V3Progress tracks domain-completion progress for a run.
type V3Progress struct {
	DomainsCompleted int            `json:"domainsCompleted"`
	TotalDomains     int            `json:"totalDomains"`
	DDDProgress      float64        `json:"dddProgress"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// SecurityStatus summarizes the run's security posture.
type SecurityStatus struct {
	Status    string `json:"status"`
	CVEsFixed int    `json:"cvesFixed"`
	TotalCVEs int    `json:"totalCves"`
}

// SwarmStatus summarizes multi-agent coordination state.
type SwarmStatus struct {
	ActiveAgents       int  `json:"activeAgents"`
	MaxAgents          int  `json:"maxAgents"`
	CoordinationActive bool `json:"coordinationActive"`
}

// HooksStatus summarizes the hook-learning subsystem's state.
type HooksStatus struct {
	Status          string  `json:"status"`
	PatternsLearned int     `json:"patternsLearned"`
	RoutingAccuracy float64 `json:"routingAccuracy"`
	TotalOperations int     `json:"totalOperations"`
}

// PerformanceStatus summarizes runtime performance metrics.
type PerformanceStatus struct {
	FlashAttentionTarget string  `json:"flashAttentionTarget"`
	SearchImprovement    float64 `json:"searchImprovement"`
	MemoryReduction      float64 `json:"memoryReduction"`
}

// StatuslineRecord is the structured record the statusline stream
// carries. Core components produce it; a renderer (out of scope for the
// core) consumes it.
type StatuslineRecord struct {
	V3Progress  V3Progress        `json:"v3Progress"`
	Security    SecurityStatus    `json:"security"`
	Swarm       SwarmStatus       `json:"swarm"`
	Hooks       HooksStatus       `json:"hooks"`
	Performance PerformanceStatus `json:"performance"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// StatuslineProducer emits the latest StatuslineRecord for a run. The
// core's components (governor, scheduler, ledger) implement or feed one;
// no implementation lives in this package.
type StatuslineProducer interface {
	CurrentStatusline() StatuslineRecord
}

// RenderMode selects a StatuslineConsumer's output shape.
type RenderMode string

const (
	RenderSingleLine RenderMode = "single-line"
	RenderMultiLine  RenderMode = "multi-line"
	RenderJSON       RenderMode = "json"
)

// StatuslineConsumer renders a StatuslineRecord in one of the recognized
// modes. Every renderer must keep columns 15-25 of the penultimate
// rendered line visually empty to avoid terminal collisions with an
// external progress indicator; that padding constraint binds whatever
// concrete renderer implements this interface, not the core.
type StatuslineConsumer interface {
	Render(record StatuslineRecord, mode RenderMode) (string, error)
}
