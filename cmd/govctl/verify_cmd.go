package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agentsentry/governance/pkg/coherence"
	"github.com/agentsentry/governance/pkg/conformance"
	"github.com/agentsentry/governance/pkg/gates"
)

// runVerifyCmd implements `govctl verify`: it independently re-derives
// every event's decision from a trace exported by 'export' and reports
// any divergence from the recorded decision, plus basic structural
// well-formedness (dense sequence, non-decreasing timestamps and budget
// counters).
//
// Exit codes:
//
//	0 = trace well-formed, no divergences
//	1 = divergence or structural issue found
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var tracePath string
	var jsonOutput bool
	cmd.StringVar(&tracePath, "trace", "", "Path to trace.json (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if tracePath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --trace is required")
		return 2
	}

	data, err := os.ReadFile(tracePath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read trace: %v\n", err)
		return 2
	}

	var trace []conformance.TraceEvent
	if err := json.Unmarshal(data, &trace); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot parse trace: %v\n", err)
		return 2
	}

	destructive, err := gates.NewDestructiveOpsGate()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot build destructive-ops gate: %v\n", err)
		return 2
	}

	verifier := conformance.NewVerifier(coherence.DefaultThresholds(), destructive)
	divergences := verifier.Verify(trace)
	structural := conformance.ValidateTrace(trace)

	if jsonOutput {
		result := map[string]any{
			"divergences":      divergences,
			"structuralIssues": structural,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		printVerifyReport(stdout, divergences, structural)
	}

	if len(divergences) > 0 || len(structural) > 0 {
		return 1
	}
	return 0
}

func printVerifyReport(w io.Writer, divergences []conformance.Divergence, structural []string) {
	if len(divergences) == 0 && len(structural) == 0 {
		_, _ = fmt.Fprintln(w, "✅ trace verified: no divergences, structurally well-formed")
		return
	}

	if len(structural) > 0 {
		_, _ = fmt.Fprintf(w, "❌ structural issues (%d):\n", len(structural))
		for _, issue := range structural {
			_, _ = fmt.Fprintf(w, "  - %s\n", issue)
		}
	}

	if len(divergences) > 0 {
		_, _ = fmt.Fprintf(w, "❌ divergences (%d):\n", len(divergences))
		for _, d := range divergences {
			_, _ = fmt.Fprintf(w, "  - seq %d (%s): recorded=%q expected=%q\n", d.Seq, d.Type, d.Recorded, d.Expected)
		}
	}
}
