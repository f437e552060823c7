// Package integrity provides system health checks.
//
// # Checks Provided
//
//   - Storage: checks that the snapshot bucket exists and counts archived snapshots.
//   - History: validates that the run history table holds every column of the run model.
//   - Pipelines: plans every configured pipeline, which reads both sides and aligns their
//     schemas without writing.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/storage : Runs the storage check (supports ?fix=true).
//   - GET /integrity/history : Runs the history schema check (supports ?fix=true).
//   - GET /integrity/pipelines : Plans every pipeline.
package integrity
