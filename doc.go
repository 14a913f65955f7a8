// Package copilot provides an asynchronous generation pipeline that turns a
// free-text description of a business process into a validated process map,
// a data model and form definitions.
//
// The pipeline is built around four ideas:
//
//  1. Jobs. Every submission creates a Job with a strictly increasing
//     version counter. Clients poll the job; the version doubles as a cheap
//     change detector (the HTTP layer derives an ETag from it).
//  2. Stages. Generation runs in order: outline (for free-text prompts),
//     process map, data model, forms. Each stage commits its artifact to the
//     job before the next stage starts, so clients see partial results as
//     they land.
//  3. Self-correction. Generated process maps are checked by a structural
//     validator. An invalid map is sent back to the provider together with
//     the failure reason for a bounded number of repair attempts before the
//     job is failed.
//  4. Providers. The generation capabilities (outline, transform, repair,
//     data modeling, form design, suggestions) are small interfaces in
//     pkg/api. The built-in rule-based providers are deterministic and
//     dependency-free; production deployments plug in their own.
//
// # Quick start
//
//	svc, err := copilot.NewInMemoryService(copilot.NewRuleBasedProviders())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go svc.Worker(nil).Run(ctx)
//
//	jobID, err := svc.SubmitPrompt(ctx, "employee submits a leave request, manager approves it")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Poll until the job reaches a terminal state.
//	job, err := svc.GetJob(ctx, jobID)
//
// # Persistence
//
// Jobs can be stored in memory, SQLite (modernc.org/sqlite, no cgo) or
// Redis. All three backends enforce the same contract: versions only move
// forward, and jobs in a terminal state reject further mutation.
//
// # Observability
//
// An Observer receives pipeline lifecycle events. The package ships a
// logging observer (log/slog), an atomic counter observer and a composite;
// the copilotd daemon adds a Prometheus-backed one.
package copilot
