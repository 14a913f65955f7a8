// Package api contains the core building blocks of the copilot generation
// pipeline: the job snapshot model, the process-graph and artifact types,
// the capability-provider interfaces, and the observer callbacks.
//
// Most users interact with the higher-level copilot package, which
// re-exports selected types and constructors from this package. The api
// package is intended for provider implementations, custom integrations,
// and contributors extending the pipeline itself.
//
// # Jobs
//
// A Job is one immutable status snapshot of an asynchronous generation job.
// Jobs move through a small state machine:
//
//	PENDING -> PROCESSING -> COMPLETED
//	                      -> FAILED
//
// COMPLETED and FAILED are terminal; no further transitions are accepted.
// Every observable change replaces the snapshot wholesale and increments
// Version by one, including message-only progress updates, so the version
// doubles as a cheap change detector for polling clients.
//
// LastUpdatedStage names the artifact that last changed (PROCESS, DATA or
// FORM), letting a client re-render only the affected panel.
//
// # Artifacts
//
// The pipeline produces three artifacts in order: a ProcessGraph (the
// validated process map), a DataModel (atomic data entities attributed to
// the producing nodes) and a FormModel (field groups bound to entities).
// Artifacts are committed to the job as each stage finishes; a job observed
// mid-pipeline carries the artifacts committed so far and nil for the rest.
//
// # Providers
//
// The generation capabilities are expressed as small single-method
// interfaces: Outliner, Transformer (with Repair), DataModeler,
// FormDesigner and Suggester. The orchestrator treats every provider as
// opaque and absorbs its instability behind a bounded retry loop; a
// provider may be a remote model, a rule engine, or anything else that
// honors context cancellation.
//
// # Observability
//
// Observer receives job and stage lifecycle callbacks. The package ships
// NoopObserver, LoggingObserver (log/slog), BasicMetrics (atomic counters
// with an immutable Snapshot) and CompositeObserver for fan-out.
package api
