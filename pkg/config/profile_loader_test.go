package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile_Default(t *testing.T) {
	p, err := LoadProfile("profiles", "default")
	require.NoError(t, err)

	assert.Equal(t, "Default", p.Name)
	assert.Equal(t, "default", p.Code)
	assert.Equal(t, 300, p.DiffSizeThreshold)
	assert.InDelta(t, 0.3, p.MaxDivergence, 0.0001)
	assert.Contains(t, p.ToolAllowlist, "shell.exec")
	require.Len(t, p.RolloutStages, 3)
	assert.Equal(t, "canary", p.RolloutStages[0].Name)
	assert.Equal(t, 5, p.RolloutStages[0].Percentage)
	limits, ok := p.BudgetLimits["tokens"]
	require.True(t, ok)
	assert.Equal(t, int64(50000), limits.Soft)
	assert.Equal(t, int64(200000), limits.Hard)
}

func TestLoadProfile_Strict(t *testing.T) {
	p, err := LoadProfile("profiles", "strict")
	require.NoError(t, err)

	assert.Equal(t, "Strict", p.Name)
	assert.Equal(t, 100, p.DiffSizeThreshold)
	assert.InDelta(t, 0.1, p.MaxDivergence, 0.0001)
	assert.Len(t, p.ToolAllowlist, 1)
	require.Len(t, p.RolloutStages, 3)
	assert.InDelta(t, 0.05, p.RolloutStages[0].DivergenceThreshold, 0.0001)
}

func TestLoadProfile_UnknownCodeReturnsError(t *testing.T) {
	_, err := LoadProfile("profiles", "nonexistent")
	assert.Error(t, err)
}

func TestLoadAllProfiles(t *testing.T) {
	profiles, err := LoadAllProfiles("profiles")
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	for code, p := range profiles {
		assert.NotEmpty(t, p.Name, "profile %s has empty name", code)
		assert.Equal(t, code, p.Code)
	}

	assert.Contains(t, profiles, "default")
	assert.Contains(t, profiles, "strict")
}

func TestGateProfile_DiffSizeThresholdOrDefault(t *testing.T) {
	p := &GateProfile{}
	assert.Equal(t, 42, p.DiffSizeThresholdOrDefault(42))

	p.DiffSizeThreshold = 150
	assert.Equal(t, 150, p.DiffSizeThresholdOrDefault(42))
}

func TestGateProfile_MaxDivergenceOrDefault(t *testing.T) {
	p := &GateProfile{}
	assert.InDelta(t, 0.5, p.MaxDivergenceOrDefault(0.5), 0.0001)

	p.MaxDivergence = 0.2
	assert.InDelta(t, 0.2, p.MaxDivergenceOrDefault(0.5), 0.0001)
}
