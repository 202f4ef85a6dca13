package evolution

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WasiEvaluator runs a candidate evaluator as a sandboxed WASM module, so
// simulate() never runs untrusted candidate logic with host privileges.
// A deny-by-default wazero runtime with no filesystem, network, or
// ambient authority wired in, stdin/stdout as the only channel.
type WasiEvaluator struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

// NewWasiEvaluator compiles a candidate WASM module once for reuse across
// every golden trace in a simulation.
func NewWasiEvaluator(ctx context.Context, wasmBytes []byte) (*WasiEvaluator, error) {
	runtime := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("evolution: compile candidate module: %w", err)
	}

	return &WasiEvaluator{runtime: runtime, compiled: compiled}, nil
}

// Evaluate feeds the trace's inputs to the sandboxed module via stdin and
// parses its stdout as newline-separated decisions. The module receives
// no filesystem, network, or environment access.
func (w *WasiEvaluator) Evaluate(trace GoldenTrace) (TraceOutcome, error) {
	ctx := context.Background()
	var stdout, stderr bytes.Buffer

	modCfg := wazero.NewModuleConfig().
		WithName(trace.ID).
		WithStdin(strings.NewReader(strings.Join(trace.Inputs, "\n"))).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithStartFunctions("_start")

	mod, err := w.runtime.InstantiateModule(ctx, w.compiled, modCfg)
	if err != nil {
		return TraceOutcome{}, fmt.Errorf("evolution: instantiate candidate module for trace %s: %w", trace.ID, err)
	}
	defer func() { _ = mod.Close(ctx) }()

	if stderr.Len() > 0 {
		return TraceOutcome{}, fmt.Errorf("evolution: candidate module stderr for trace %s: %s", trace.ID, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	return TraceOutcome{Decisions: lines, Metrics: map[string]float64{}}, nil
}

// Close releases the wazero runtime and compiled module.
func (w *WasiEvaluator) Close(ctx context.Context) error {
	_ = w.compiled.Close(ctx)
	return w.runtime.Close(ctx)
}
