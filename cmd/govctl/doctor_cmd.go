package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/agentsentry/governance/pkg/config"
)

// runDoctorCmd implements `govctl doctor` — environment configuration
// health check.
//
// Exit codes:
//
//	0 = all checks pass
//	1 = one or more checks failed
func runDoctorCmd(stdout, stderr io.Writer) int {
	type checkResult struct {
		Name   string `json:"name"`
		Status string `json:"status"` // "ok", "warn", "fail"
		Detail string `json:"detail,omitempty"`
	}

	var results []checkResult
	allOK := true

	results = append(results, checkResult{
		Name:   "go_runtime",
		Status: "ok",
		Detail: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	cfg := config.Load()

	if cfg.SigningKey == "" {
		results = append(results, checkResult{
			Name:   "signing_key",
			Status: "warn",
			Detail: "GOVERNANCE_SIGNING_KEY not set; proof envelopes cannot be signed",
		})
	} else {
		results = append(results, checkResult{
			Name:   "signing_key",
			Status: "ok",
			Detail: "set",
		})
	}

	results = append(results, checkResult{
		Name:   "storage_backend",
		Status: "ok",
		Detail: string(cfg.StorageBackend),
	})

	if cfg.StorageBackend != config.StorageInMemory && cfg.DatabaseURL == "" {
		results = append(results, checkResult{
			Name:   "database_url",
			Status: "fail",
			Detail: fmt.Sprintf("DATABASE_URL required for storage backend %q", cfg.StorageBackend),
		})
		allOK = false
	}

	profiles, err := config.LoadAllProfiles("pkg/config/profiles")
	if err != nil {
		results = append(results, checkResult{
			Name:   "gate_profiles",
			Status: "warn",
			Detail: fmt.Sprintf("could not load profiles: %v", err),
		})
	} else {
		results = append(results, checkResult{
			Name:   "gate_profiles",
			Status: "ok",
			Detail: fmt.Sprintf("%d profile(s) loaded", len(profiles)),
		})
	}

	data, _ := json.MarshalIndent(results, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))

	if !allOK {
		return 1
	}
	for _, r := range results {
		if r.Status == "fail" {
			return 1
		}
	}
	return 0
}
