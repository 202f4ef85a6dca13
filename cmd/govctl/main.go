// Command govctl is the operator CLI for the governance control plane:
// it runs the canonical conformance cell, replay-verifies an exported
// trace, and exports/imports proof chain envelopes for audit.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing; it never calls os.Exit itself.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 2
	}

	switch args[1] {
	case "cell":
		return runCellCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "export":
		return runExportCmd(args[2:], stdout, stderr)
	case "doctor":
		return runDoctorCmd(stdout, stderr)
	case "version":
		_, _ = fmt.Fprintln(stdout, "govctl 0.1.0")
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "govctl — governance control plane operator CLI")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  govctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  cell      Run the canonical Memory Clerk conformance cell (--json)")
	fmt.Fprintln(w, "  export    Run the conformance cell and write its envelope+trace to --out")
	fmt.Fprintln(w, "  verify    Replay-verify a trace exported by 'export' (--trace)")
	fmt.Fprintln(w, "  doctor    Check environment configuration")
	fmt.Fprintln(w, "  version   Show version information")
	fmt.Fprintln(w, "  help      Show this help")
	fmt.Fprintln(w, "")
}
