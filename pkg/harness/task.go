// Package harness implements the Headless Task Harness: spawning
// an external process per task, parsing its JSON stdout, and checking a
// fixed set of assertion types against the result.
package harness

// AssertionType is one of the recognized task assertion kinds.
type AssertionType string

const (
	AssertionOutputContains    AssertionType = "output-contains"
	AssertionOutputNotContains AssertionType = "output-not-contains"
	AssertionFilesTouched      AssertionType = "files-touched"
	AssertionNoForbiddenCmds   AssertionType = "no-forbidden-commands"
	AssertionTestsPass         AssertionType = "tests-pass"
	AssertionMetadataSchema    AssertionType = "metadata-schema"
	AssertionCustom            AssertionType = "custom"
)

// Assertion is one check a task runs against the harnessed process's output.
type Assertion struct {
	Type        AssertionType `json:"type"`
	Expected    string        `json:"expected"`
	Description string        `json:"description"`
}

// Task is one entry in a task suite.
type Task struct {
	ID             string      `json:"id"`
	Prompt         string      `json:"prompt"`
	ExpectedIntent string      `json:"expectedIntent"`
	Assertions     []Assertion `json:"assertions"`
	MaxViolations  int         `json:"maxViolations"`
	TimeoutMs      int         `json:"timeoutMs"`
	Tags           []string    `json:"tags"`
}

// ProcessOutput is the recognized shape of a headless process's stdout.
// Non-JSON stdout is treated as
// {result: stdout, toolsUsed: [], filesModified: [], hasErrors: false}.
type ProcessOutput struct {
	Result        string         `json:"result"`
	ToolsUsed     []string       `json:"toolsUsed"`
	FilesModified []string       `json:"filesModified"`
	HasErrors     bool           `json:"hasErrors"`
	Metadata      map[string]any `json:"metadata"`
}

// rawProcessOutput accepts the recognized field aliases
// (`result|text|content`, `toolsUsed|tools`, `filesModified|files`) before
// normalizing into a ProcessOutput.
type rawProcessOutput struct {
	Result        string         `json:"result"`
	Text          string         `json:"text"`
	Content       string         `json:"content"`
	ToolsUsed     []string       `json:"toolsUsed"`
	Tools         []string       `json:"tools"`
	FilesModified []string       `json:"filesModified"`
	Files         []string       `json:"files"`
	HasErrors     bool           `json:"hasErrors"`
	Metadata      map[string]any `json:"metadata"`
}

func (r rawProcessOutput) normalize() ProcessOutput {
	result := r.Result
	if result == "" {
		result = r.Text
	}
	if result == "" {
		result = r.Content
	}
	toolsUsed := r.ToolsUsed
	if toolsUsed == nil {
		toolsUsed = r.Tools
	}
	filesModified := r.FilesModified
	if filesModified == nil {
		filesModified = r.Files
	}
	return ProcessOutput{
		Result:        result,
		ToolsUsed:     toolsUsed,
		FilesModified: filesModified,
		HasErrors:     r.HasErrors,
		Metadata:      r.Metadata,
	}
}

// TaskResult is the outcome of running one task against a harnessed process.
type TaskResult struct {
	TaskID      string
	Passed      bool
	Violations  []string
	Output      ProcessOutput
	DurationMs  int64
	TimedOut    bool
	ExitErr     string
}
