// Package history records the outcome of every sync pass in the sync_runs table.
//
// A Run flattens a reconcile.Report together with the error that ended the pass, if
// any. Runs are keyed by a random UUID and listed newest first, optionally per
// pipeline. The store works with any GORM dialector opened by core/database.
package history
