// Package observability provides OpenTelemetry tracing and metrics, an
// audit timeline, and SLI/SLO tracking for the governance control plane.
//
// # Tracing and metrics
//
// Initialize a provider at process startup:
//
//	prov, err := observability.New(ctx, observability.DefaultConfig())
//	defer prov.Shutdown(ctx)
//
// Track an operation end-to-end (span + RED metrics):
//
//	ctx, done := prov.TrackOperation(ctx, "memory_write", attrs...)
//	err := doWork(ctx)
//	done(err)
//
// # Audit timeline
//
// Record every gated action, tool call, decision, and proof event on a
// single queryable timeline:
//
//	timeline := observability.NewAuditTimeline()
//	timeline.Record(observability.TimelineEntry{
//		EntryType: observability.EntryTypeDecision,
//		RunID:     runID,
//		Summary:   "memory write blocked: rate limit exceeded",
//	})
//
// # SLIs and SLOs
//
// Define and track service level objectives per operation:
//
//	slo := observability.NewSLOTracker()
//	slo.SetTarget(&observability.SLOTarget{SLOID: "gate-eval-latency", Operation: "gate_evaluate", LatencyP99: 50 * time.Millisecond, SuccessRate: 0.999, WindowHours: 1})
//	slo.Record(observability.SLOObservation{Operation: "gate_evaluate", Latency: 12 * time.Millisecond, Success: true})
package observability
