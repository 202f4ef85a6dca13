package harness

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentsentry/governance/pkg/gates"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CustomAssertionFunc is a caller-supplied check for AssertionCustom,
// keyed by the assertion's Description. It reports pass/fail and an
// optional violation message.
type CustomAssertionFunc func(output ProcessOutput) (bool, string)

// Evaluator runs every assertion in a task against a process's output.
// Forbidden-command checks reuse the Enforcement Gates' destructive-ops
// pattern set rather than a second, hand-rolled command blocklist.
type Evaluator struct {
	destructive *gates.DestructiveOpsGate
	custom      map[string]CustomAssertionFunc
}

// NewEvaluator builds an assertion Evaluator. destructive may be nil, in
// which case no-forbidden-commands assertions always pass.
func NewEvaluator(destructive *gates.DestructiveOpsGate, custom map[string]CustomAssertionFunc) *Evaluator {
	return &Evaluator{destructive: destructive, custom: custom}
}

// Evaluate runs every assertion against output and returns the violation
// messages for every assertion that failed.
func (e *Evaluator) Evaluate(assertions []Assertion, output ProcessOutput) []string {
	var violations []string
	for _, a := range assertions {
		if ok, reason := e.evaluateOne(a, output); !ok {
			violations = append(violations, fmt.Sprintf("%s: %s", a.Description, reason))
		}
	}
	return violations
}

func (e *Evaluator) evaluateOne(a Assertion, output ProcessOutput) (bool, string) {
	switch a.Type {
	case AssertionOutputContains:
		matched, err := matchPattern(a.Expected, output.Result)
		if err != nil {
			return false, err.Error()
		}
		if !matched {
			return false, fmt.Sprintf("output did not match %q", a.Expected)
		}
		return true, ""

	case AssertionOutputNotContains:
		matched, err := matchPattern(a.Expected, output.Result)
		if err != nil {
			return false, err.Error()
		}
		if matched {
			return false, fmt.Sprintf("output unexpectedly matched %q", a.Expected)
		}
		return true, ""

	case AssertionFilesTouched:
		for _, f := range output.FilesModified {
			if matched, _ := matchPattern(a.Expected, f); matched {
				return true, ""
			}
		}
		return false, fmt.Sprintf("no touched file matched %q", a.Expected)

	case AssertionNoForbiddenCmds:
		return e.evaluateNoForbiddenCommands(output)

	case AssertionTestsPass:
		if output.HasErrors {
			return false, "process reported hasErrors=true"
		}
		if passed, ok := output.Metadata["testsPass"].(bool); ok && !passed {
			return false, "metadata.testsPass=false"
		}
		return true, ""

	case AssertionMetadataSchema:
		return evaluateMetadataSchema(a.Expected, output.Metadata)

	case AssertionCustom:
		fn, ok := e.custom[a.Description]
		if !ok {
			return false, fmt.Sprintf("no custom assertion registered for %q", a.Description)
		}
		return fn(output)

	default:
		return false, fmt.Sprintf("unknown assertion type %q", a.Type)
	}
}

func (e *Evaluator) evaluateNoForbiddenCommands(output ProcessOutput) (bool, string) {
	if e.destructive == nil {
		return true, ""
	}
	commands, _ := output.Metadata["commandsRun"].([]any)
	for _, c := range commands {
		cmd, ok := c.(string)
		if !ok {
			continue
		}
		result := e.destructive.Evaluate(cmd)
		if result.Decision == gates.Block || result.Decision == gates.RequireConfirmation {
			return false, fmt.Sprintf("command %q matched destructive rule %v", cmd, result.TriggeredRules)
		}
	}
	return true, ""
}

// evaluateMetadataSchema validates a task's output metadata against the
// JSON Schema document carried in the assertion's Expected field, using
// the same compile-once-then-validate shape as the tool param schema
// gate, applied here to a task suite's assertion payload instead of a
// tool call's parameters.
func evaluateMetadataSchema(schemaJSON string, metadata map[string]any) (bool, string) {
	if schemaJSON == "" {
		return false, "metadata-schema assertion has no schema document"
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://agentsentry.local/harness/metadata.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return false, fmt.Sprintf("load metadata schema: %v", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return false, fmt.Sprintf("compile metadata schema: %v", err)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	// Round-trip through encoding/json so numeric metadata values match the
	// float64/string/bool shapes the schema validator expects regardless
	// of how the caller built the map.
	data, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Sprintf("marshal metadata: %v", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return false, fmt.Sprintf("normalize metadata: %v", err)
	}

	if err := compiled.Validate(normalized); err != nil {
		return false, fmt.Sprintf("metadata failed schema validation: %v", err)
	}
	return true, ""
}

// matchPattern reports whether s matches pattern as a regular expression.
// Expected values that aren't valid regex (plain literal text) still work:
// an invalid-as-regex literal falls back to a substring check.
func matchPattern(pattern, s string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return strings.Contains(s, pattern), nil
	}
	return re.MatchString(s), nil
}
