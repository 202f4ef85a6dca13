package gates

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// Perimeter enforcement modes.
const (
	PerimeterEnforce  = "enforce"
	PerimeterAudit    = "audit"
	PerimeterDisabled = "disabled"
)

// PerimeterPolicy bounds what a cell run may reach: which hosts and ports
// it may call out to, which tools it may invoke, and which data
// classifications it may read or write.
type PerimeterPolicy struct {
	Mode    string
	Network *NetworkConstraints
	Tools   *ToolConstraints
	Data    *DataConstraints
}

// NetworkConstraints defines egress rules.
type NetworkConstraints struct {
	AllowedHosts []string
	DeniedHosts  []string
	AllowedPorts []int
	RequireTLS   bool
}

// ToolConstraints defines tool execution rules.
type ToolConstraints struct {
	AllowedTools       []string
	DeniedTools        []string
	RequireAttestation bool
}

// DataConstraints defines data flow rules by classification tag.
type DataConstraints struct {
	AllowedClasses []string
	DeniedClasses  []string
}

// PerimeterGate enforces a PerimeterPolicy's network, tool, and
// data-classification constraints. Allowed-host globs are compiled to
// regexes once, at LoadPolicy, rather than per call.
type PerimeterGate struct {
	mu           sync.RWMutex
	policy       *PerimeterPolicy
	compiledHost []*regexp.Regexp
}

// NewPerimeterGate creates a gate, optionally pre-loaded with policy.
// A nil policy allows everything until LoadPolicy is called.
func NewPerimeterGate(policy *PerimeterPolicy) *PerimeterGate {
	g := &PerimeterGate{}
	if policy != nil {
		g.LoadPolicy(policy)
	}
	return g
}

// LoadPolicy replaces the active policy and recompiles its allowed-host
// patterns ("*.example.com"-style globs).
func (g *PerimeterGate) LoadPolicy(policy *PerimeterPolicy) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.policy = policy
	g.compiledHost = nil
	if policy == nil || policy.Network == nil {
		return
	}
	for _, host := range policy.Network.AllowedHosts {
		pattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(host), "\\*", ".*") + "$"
		if re, err := regexp.Compile(pattern); err == nil {
			g.compiledHost = append(g.compiledHost, re)
		}
	}
}

// EvaluateNetwork checks whether targetURL may be reached under the
// loaded policy.
func (g *PerimeterGate) EvaluateNetwork(targetURL string) GateResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.policy == nil || g.policy.Mode == PerimeterDisabled {
		return GateResult{Decision: Allow, GateName: "perimeter-network", Reason: "no network policy loaded"}
	}
	nc := g.policy.Network
	if nc == nil {
		return GateResult{Decision: Allow, GateName: "perimeter-network", Reason: "policy has no network constraints"}
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return GateResult{Decision: Block, GateName: "perimeter-network", Reason: fmt.Sprintf("invalid url: %v", err)}
	}
	host := u.Hostname()
	port := u.Port()

	if nc.RequireTLS && u.Scheme != "https" {
		return g.denyOrWarn("perimeter-network", "TLS required for "+host)
	}
	for _, denied := range nc.DeniedHosts {
		if matchHost(denied, host) {
			return g.denyOrWarn("perimeter-network", "host explicitly denied: "+host)
		}
	}
	if len(nc.AllowedHosts) > 0 {
		allowed := false
		for _, re := range g.compiledHost {
			if re.MatchString(host) {
				allowed = true
				break
			}
		}
		if !allowed {
			return g.denyOrWarn("perimeter-network", "host not in allowlist: "+host)
		}
	}
	if len(nc.AllowedPorts) > 0 && port != "" {
		portInt := 0
		_, _ = fmt.Sscanf(port, "%d", &portInt)
		allowed := false
		for _, p := range nc.AllowedPorts {
			if p == portInt {
				allowed = true
				break
			}
		}
		if !allowed {
			return g.denyOrWarn("perimeter-network", "port not allowed: "+port)
		}
	}

	return GateResult{Decision: Allow, GateName: "perimeter-network", Reason: "host and port permitted"}
}

// EvaluateTool checks whether toolID may execute under the loaded policy.
func (g *PerimeterGate) EvaluateTool(toolID string, attested bool) GateResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.policy == nil || g.policy.Mode == PerimeterDisabled {
		return GateResult{Decision: Allow, GateName: "perimeter-tool", Reason: "no tool policy loaded"}
	}
	tc := g.policy.Tools
	if tc == nil {
		return GateResult{Decision: Allow, GateName: "perimeter-tool", Reason: "policy has no tool constraints"}
	}

	if tc.RequireAttestation && !attested {
		return g.denyOrWarn("perimeter-tool", "tool not attested: "+toolID)
	}
	for _, denied := range tc.DeniedTools {
		if denied == toolID {
			return g.denyOrWarn("perimeter-tool", "tool explicitly denied: "+toolID)
		}
	}
	if len(tc.AllowedTools) > 0 {
		allowed := false
		for _, allowedID := range tc.AllowedTools {
			if allowedID == toolID {
				allowed = true
				break
			}
		}
		if !allowed {
			return g.denyOrWarn("perimeter-tool", "tool not in allowlist: "+toolID)
		}
	}

	return GateResult{Decision: Allow, GateName: "perimeter-tool", Reason: "tool permitted"}
}

// EvaluateData checks whether dataClass may be read or written under the
// loaded policy.
func (g *PerimeterGate) EvaluateData(dataClass string) GateResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.policy == nil || g.policy.Mode == PerimeterDisabled {
		return GateResult{Decision: Allow, GateName: "perimeter-data", Reason: "no data policy loaded"}
	}
	dc := g.policy.Data
	if dc == nil {
		return GateResult{Decision: Allow, GateName: "perimeter-data", Reason: "policy has no data constraints"}
	}

	for _, denied := range dc.DeniedClasses {
		if denied == dataClass {
			return g.denyOrWarn("perimeter-data", "data class denied: "+dataClass)
		}
	}
	if len(dc.AllowedClasses) > 0 {
		allowed := false
		for _, allowedClass := range dc.AllowedClasses {
			if allowedClass == dataClass {
				allowed = true
				break
			}
		}
		if !allowed {
			return g.denyOrWarn("perimeter-data", "data class not allowed: "+dataClass)
		}
	}

	return GateResult{Decision: Allow, GateName: "perimeter-data", Reason: "data class permitted"}
}

// denyOrWarn must be called with g.mu held. In audit mode a violation is
// downgraded to Warn rather than silently passing, so it still surfaces
// through Aggregate instead of vanishing from the decision trail.
func (g *PerimeterGate) denyOrWarn(gateName, reason string) GateResult {
	if g.policy.Mode == PerimeterAudit {
		return GateResult{Decision: Warn, GateName: gateName, Reason: reason}
	}
	return GateResult{Decision: Block, GateName: gateName, Reason: reason}
}

func matchHost(pattern, host string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		domain := pattern[2:]
		return strings.HasSuffix(host, domain) || host == domain
	}
	return pattern == host
}
