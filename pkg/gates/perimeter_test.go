package gates_test

import (
	"testing"

	"github.com/agentsentry/governance/pkg/gates"
	"github.com/stretchr/testify/assert"
)

func TestPerimeterGate_NoPolicyAllowsEverything(t *testing.T) {
	g := gates.NewPerimeterGate(nil)

	assert.Equal(t, gates.Allow, g.EvaluateNetwork("https://anything.example.com").Decision)
	assert.Equal(t, gates.Allow, g.EvaluateTool("any_tool", false).Decision)
	assert.Equal(t, gates.Allow, g.EvaluateData("any_class").Decision)
}

func TestPerimeterGate_EvaluateNetwork_DeniesHostNotInAllowlist(t *testing.T) {
	g := gates.NewPerimeterGate(&gates.PerimeterPolicy{
		Mode:    gates.PerimeterEnforce,
		Network: &gates.NetworkConstraints{AllowedHosts: []string{"*.internal.example.com"}},
	})

	result := g.EvaluateNetwork("https://api.internal.example.com/v1")
	assert.Equal(t, gates.Allow, result.Decision)

	result = g.EvaluateNetwork("https://evil.example.org")
	assert.Equal(t, gates.Block, result.Decision)
}

func TestPerimeterGate_EvaluateNetwork_RequiresTLS(t *testing.T) {
	g := gates.NewPerimeterGate(&gates.PerimeterPolicy{
		Mode:    gates.PerimeterEnforce,
		Network: &gates.NetworkConstraints{RequireTLS: true},
	})

	result := g.EvaluateNetwork("http://plain.example.com")
	assert.Equal(t, gates.Block, result.Decision)
	assert.Contains(t, result.Reason, "TLS required")
}

func TestPerimeterGate_EvaluateTool_RequiresAttestation(t *testing.T) {
	g := gates.NewPerimeterGate(&gates.PerimeterPolicy{
		Mode:  gates.PerimeterEnforce,
		Tools: &gates.ToolConstraints{RequireAttestation: true},
	})

	assert.Equal(t, gates.Block, g.EvaluateTool("deploy", false).Decision)
	assert.Equal(t, gates.Allow, g.EvaluateTool("deploy", true).Decision)
}

func TestPerimeterGate_EvaluateData_DeniesDeniedClass(t *testing.T) {
	g := gates.NewPerimeterGate(&gates.PerimeterPolicy{
		Mode: gates.PerimeterEnforce,
		Data: &gates.DataConstraints{DeniedClasses: []string{"pii"}},
	})

	assert.Equal(t, gates.Block, g.EvaluateData("pii").Decision)
	assert.Equal(t, gates.Allow, g.EvaluateData("public").Decision)
}

func TestPerimeterGate_AuditModeDowngradesToWarn(t *testing.T) {
	g := gates.NewPerimeterGate(&gates.PerimeterPolicy{
		Mode:  gates.PerimeterAudit,
		Tools: &gates.ToolConstraints{DeniedTools: []string{"deploy"}},
	})

	result := g.EvaluateTool("deploy", false)
	assert.Equal(t, gates.Warn, result.Decision)
	assert.Contains(t, result.Reason, "deploy")
}

func TestPerimeterGate_LoadPolicyReplacesCompiledHosts(t *testing.T) {
	g := gates.NewPerimeterGate(&gates.PerimeterPolicy{
		Mode:    gates.PerimeterEnforce,
		Network: &gates.NetworkConstraints{AllowedHosts: []string{"*.old.example.com"}},
	})
	assert.Equal(t, gates.Block, g.EvaluateNetwork("https://api.new.example.com").Decision)

	g.LoadPolicy(&gates.PerimeterPolicy{
		Mode:    gates.PerimeterEnforce,
		Network: &gates.NetworkConstraints{AllowedHosts: []string{"*.new.example.com"}},
	})
	assert.Equal(t, gates.Allow, g.EvaluateNetwork("https://api.new.example.com").Decision)
}

func TestValidateOperation_FilesystemWriteRequiresPathAndContent(t *testing.T) {
	err := gates.ValidateOperation(gates.OpFilesystemWrite, map[string]any{"path": "/tmp/a"})
	assert.Error(t, err)

	err = gates.ValidateOperation(gates.OpFilesystemWrite, map[string]any{"path": "/tmp/a", "content": "hi"})
	assert.NoError(t, err)
}

func TestValidateOperation_NetworkGetRequiresStringPayload(t *testing.T) {
	assert.Error(t, gates.ValidateOperation(gates.OpNetworkGet, map[string]any{"url": "https://x"}))
	assert.NoError(t, gates.ValidateOperation(gates.OpNetworkGet, "https://x"))
}

func TestValidateOperation_UnknownOpRejected(t *testing.T) {
	assert.Error(t, gates.ValidateOperation(gates.Operation("DELETE_UNIVERSE"), nil))
}
