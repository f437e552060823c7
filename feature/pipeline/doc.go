// Package pipeline wires configured pipelines to the reconcile engine.
//
// A pipeline definition names a kind and two endpoints. The builder turns it into
// jobs: one orchestrator per table pair for the reconciling kinds, or a range copy
// for sheets_to_sheets. The service runs the jobs, records every pass in the run
// history and exposes them over HTTP:
//
//	GET  /pipelines
//	GET  /pipelines/:name/plan
//	POST /pipelines/:name/sync
//	GET  /pipelines/:name/runs?limit=20
package pipeline
