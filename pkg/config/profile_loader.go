package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GateProfile parameterizes a named tenant/jurisdiction's gate thresholds
// and rollout shape without touching code: diff-size threshold, the
// divergence budget the Evolution Pipeline compares against, the default
// staged-rollout definition, and the tool allowlist pattern set.
type GateProfile struct {
	Name              string              `yaml:"name" json:"name"`
	Code              string              `yaml:"code" json:"code"`
	DiffSizeThreshold int                 `yaml:"diff_size_threshold" json:"diff_size_threshold"`
	MaxDivergence     float64             `yaml:"max_divergence" json:"max_divergence"`
	ToolAllowlist     []string            `yaml:"tool_allowlist" json:"tool_allowlist"`
	RolloutStages     []RolloutStageConfig `yaml:"rollout_stages" json:"rollout_stages"`
	BudgetLimits      map[string]BudgetLimitConfig `yaml:"budget_limits,omitempty" json:"budget_limits,omitempty"`
}

// RolloutStageConfig is one named stage in a profile's staged-rollout
// definition, parsed before being converted into evolution.Stage values.
type RolloutStageConfig struct {
	Name                string  `yaml:"name" json:"name"`
	Percentage          int     `yaml:"percentage" json:"percentage"`
	DurationMs          int64   `yaml:"duration_ms" json:"duration_ms"`
	DivergenceThreshold float64 `yaml:"divergence_threshold" json:"divergence_threshold"`
}

// BudgetLimitConfig is one dimension's soft/hard limit pair, keyed by
// budget.Dimension string value in the parent map.
type BudgetLimitConfig struct {
	Soft int64 `yaml:"soft" json:"soft"`
	Hard int64 `yaml:"hard" json:"hard"`
}

// LoadProfile loads a named gate profile YAML by tenant/jurisdiction code.
// It searches the profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*GateProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile GateProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}

	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from the profiles directory.
func LoadAllProfiles(profilesDir string) (map[string]*GateProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*GateProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile GateProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// Extract code from filename: profile_eu.yaml -> eu
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// DiffSizeThresholdOrDefault returns the profile's diff-size threshold, or
// fallback if the profile didn't set one (zero value).
func (p *GateProfile) DiffSizeThresholdOrDefault(fallback int) int {
	if p.DiffSizeThreshold <= 0 {
		return fallback
	}
	return p.DiffSizeThreshold
}

// MaxDivergenceOrDefault returns the profile's divergence budget, or
// fallback if unset.
func (p *GateProfile) MaxDivergenceOrDefault(fallback float64) float64 {
	if p.MaxDivergence <= 0 {
		return fallback
	}
	return p.MaxDivergence
}
