package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ShellSingleQuote single-quotes s for any pass-through layer that will
// re-parse it as a shell word, escaping embedded `'` as `'\''`.
// Runner itself never shells out — Run always passes a pre-parsed
// executable+args vector to exec.CommandContext — this exists for callers
// building a command line for a downstream shell.
func ShellSingleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Spawner is the subset of os/exec a Runner needs, so tests can substitute
// a fake process without actually spawning one.
type Spawner interface {
	// Run executes execPath with args, feeding stdin to its standard
	// input, and returns its combined stdout and a non-nil error if the
	// process could not be started or exited non-zero. ctx governs the
	// hard timeout: on expiry the process must be killed.
	Run(ctx context.Context, execPath string, args []string, stdin string) (stdout []byte, err error)
}

// Runner executes tasks against a Spawner, parses the recognized JSON
// output shape, and checks assertions. Always invoked with a pre-parsed
// executable+args vector with stdin piped in, never a shell string.
type Runner struct {
	spawner   Spawner
	evaluator *Evaluator
	clock     func() time.Time
}

// NewRunner builds a task Runner.
func NewRunner(spawner Spawner, evaluator *Evaluator) *Runner {
	return &Runner{spawner: spawner, evaluator: evaluator, clock: time.Now}
}

// WithClock overrides the runner's clock for deterministic duration
// measurement in tests.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run spawns execPath+args for task, feeding task.Prompt on stdin, enforces
// task.TimeoutMs as a hard wall-clock limit, and checks every assertion
// against the parsed output.
func (r *Runner) Run(ctx context.Context, task Task, execPath string, args []string) *TaskResult {
	started := r.clock()

	timeout := time.Duration(task.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, err := r.spawner.Run(runCtx, execPath, args, task.Prompt)
	duration := r.clock().Sub(started).Milliseconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return &TaskResult{
			TaskID:     task.ID,
			Passed:     false,
			Violations: []string{"timeout"},
			DurationMs: duration,
			TimedOut:   true,
		}
	}
	if err != nil {
		return &TaskResult{
			TaskID:     task.ID,
			Passed:     false,
			Violations: []string{fmt.Sprintf("process exited with error: %v", err)},
			DurationMs: duration,
			ExitErr:    err.Error(),
		}
	}

	output := parseOutput(stdout)
	violations := r.evaluator.Evaluate(task.Assertions, output)

	return &TaskResult{
		TaskID:     task.ID,
		Passed:     len(violations) <= task.MaxViolations,
		Violations: violations,
		Output:     output,
		DurationMs: duration,
	}
}

// parseOutput decodes the recognized JSON shape, or falls back
// to treating non-JSON stdout as a bare result string.
func parseOutput(stdout []byte) ProcessOutput {
	trimmed := bytes.TrimSpace(stdout)
	var raw rawProcessOutput
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, &raw); err == nil {
			return raw.normalize()
		}
	}
	return ProcessOutput{
		Result:        string(trimmed),
		ToolsUsed:     []string{},
		FilesModified: []string{},
		HasErrors:     false,
	}
}
