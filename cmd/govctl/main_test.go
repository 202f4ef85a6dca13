package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentsentry/governance/pkg/conformance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NoArgsPrintsUsageAndErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"govctl"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stdout.String(), "USAGE")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"govctl", "bogus"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Unknown command")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"govctl", "version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "govctl")
}

func TestRun_CellJSONMatchesCanonicalAcceptanceNumbers(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"govctl", "cell", "-json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var summary conformance.MemoryClerkSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))

	assert.Equal(t, 20, summary.MemoryReads)
	assert.Equal(t, 2, summary.MemoryWritesCommitted)
	assert.Equal(t, 3, summary.MemoryWritesBlocked)
	assert.Equal(t, "restricted", summary.Outcome)
	assert.True(t, summary.VerifyChain)
}

func TestRun_CellHumanReadable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"govctl", "cell"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "VERIFIED")
}

func TestRun_ExportThenVerifyRoundTrip(t *testing.T) {
	dir := t.TempDir()

	var exportOut, exportErr bytes.Buffer
	code := Run([]string{"govctl", "export", "-out", dir}, &exportOut, &exportErr)
	require.Equal(t, 0, code, exportErr.String())

	tracePath := filepath.Join(dir, "trace.json")
	var verifyOut, verifyErr bytes.Buffer
	code = Run([]string{"govctl", "verify", "-trace", tracePath}, &verifyOut, &verifyErr)
	assert.Equal(t, 0, code, verifyErr.String())
	assert.Contains(t, verifyOut.String(), "verified")
}

func TestRun_VerifyMissingTraceFlagErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"govctl", "verify"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--trace is required")
}

func TestRun_VerifyDetectsTamperedTrace(t *testing.T) {
	dir := t.TempDir()

	var exportOut, exportErr bytes.Buffer
	require.Equal(t, 0, Run([]string{"govctl", "export", "-out", dir}, &exportOut, &exportErr), exportErr.String())

	tracePath := filepath.Join(dir, "trace.json")
	var trace []conformance.TraceEvent
	data, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &trace))

	for i := range trace {
		if trace[i].Type == conformance.EventMemoryWriteBlocked {
			trace[i].Decision = "committed"
			break
		}
	}
	tampered, err := json.MarshalIndent(trace, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tracePath, tampered, 0o644))

	var verifyOut, verifyErr bytes.Buffer
	code := Run([]string{"govctl", "verify", "-trace", tracePath}, &verifyOut, &verifyErr)
	assert.Equal(t, 1, code)
	assert.Contains(t, verifyOut.String(), "divergences")
}

func TestRun_Doctor(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"govctl", "doctor"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "go_runtime")
}
