package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentsentry/governance/pkg/conformance"
)

// runExportCmd implements `govctl export`: it runs the conformance cell
// and writes its proof envelope and trace to a directory for later
// replay verification or audit.
//
// Exit codes:
//
//	0 = export completed
//	2 = runtime error
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var outDir string
	cmd.StringVar(&outDir, "out", "", "Output directory (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if outDir == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --out is required")
		return 2
	}

	summary, err := conformance.RunMemoryClerkCell()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cell run failed: %v\n", err)
		return 2
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot create output dir: %v\n", err)
		return 2
	}

	envelopePath := filepath.Join(outDir, "envelope.json")
	if err := writeJSON(envelopePath, summary.Envelope); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot write envelope: %v\n", err)
		return 2
	}

	tracePath := filepath.Join(outDir, "trace.json")
	if err := writeJSON(tracePath, summary.Trace); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot write trace: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "Exported to %s/\n", outDir)
	_, _ = fmt.Fprintln(stdout, "  envelope.json")
	_, _ = fmt.Fprintln(stdout, "  trace.json")
	return 0
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
