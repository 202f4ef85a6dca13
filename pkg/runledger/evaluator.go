package runledger

// EvaluatorResult is the pure-function output of one Evaluator run against a
// sealed RunEvent. Evaluators never mutate the event; they only observe it.
type EvaluatorResult struct {
	Name    string   `json:"name"`
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons,omitempty"`
}

// Evaluator is a pure function over a sealed RunEvent, run as part of
// FinalizeEvent's pipeline. Implementations must not retain or mutate
// the event they're given.
type Evaluator interface {
	Evaluate(event *RunEvent) EvaluatorResult
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(event *RunEvent) EvaluatorResult

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(event *RunEvent) EvaluatorResult { return f(event) }

// NoViolations is a baseline evaluator: passes iff the event recorded zero
// violations.
func NoViolations() Evaluator {
	return EvaluatorFunc(func(event *RunEvent) EvaluatorResult {
		if len(event.Violations) == 0 {
			return EvaluatorResult{Name: "no_violations", Passed: true}
		}
		reasons := make([]string, 0, len(event.Violations))
		for _, v := range event.Violations {
			reasons = append(reasons, v.Code)
		}
		return EvaluatorResult{Name: "no_violations", Passed: false, Reasons: reasons}
	})
}

// BoundedDuration passes iff the event's recorded duration does not exceed
// maxMs. A non-positive maxMs disables the bound.
func BoundedDuration(maxMs int64) Evaluator {
	return EvaluatorFunc(func(event *RunEvent) EvaluatorResult {
		if maxMs <= 0 || event.DurationMs <= maxMs {
			return EvaluatorResult{Name: "bounded_duration", Passed: true}
		}
		return EvaluatorResult{
			Name:    "bounded_duration",
			Passed:  false,
			Reasons: []string{"duration exceeded bound"},
		}
	})
}
