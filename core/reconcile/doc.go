// Package reconcile provides the row-level reconciliation core used to mirror
// one table (the source of truth) into another table (the target).
//
// Tables live in external services: a document-table service (core/coda) and a
// spreadsheet service (core/sheets). Both are reached through the Table and Target
// interfaces, so the reconciliation logic never sees network details.
//
// # Architecture
//
// The reconcile system consists of four components, leaves first:
//
// 1. Align (ColumnMapper): matches the source and target schemas by exact column name
// and produces the common column set plus a target→source position correspondence.
//
// 2. Index (RowKeyIndex): builds a join-key → row lookup. Rows with an empty key are
// "not yet synced" and never take part in matching.
//
// 3. Diff (DiffEngine): classifies rows into ToInsert, ToDelete and ToUpdate. Updates
// carry only the cells that changed.
//
// 4. Orchestrator (SyncOrchestrator): drives one pass
// FETCH → ALIGN → DIFF → DELETE → INSERT → POLL-CONFIRM → WRITE-BACK-KEYS → UPDATE → REPORT.
//
// # Eventual consistency
//
// Some targets assign the join key themselves and only expose new rows after a delay.
// When the source must learn those keys (KeyWriter), the orchestrator polls the target
// at a fixed interval until the inserted rows are visible or a hard timeout expires.
// A timeout is reported as a warning; the pass is never failed because of it.
//
// Generated keys are matched to source rows by row id when the target returns ids from
// the insert call. Otherwise the match is positional: the first N new target rows (in
// snapshot order) are assumed to be the N inserted source rows (in source order). A
// target that reorders new rows breaks this assumption and keys land on the wrong rows.
//
// # Usage Example
//
//	orch := reconcile.NewOrchestrator(reconcile.Spec{
//	    Name:          "orders",
//	    Source:        worksheet,
//	    Target:        codaTable,
//	    ProtectColumn: "Do not delete",
//	}, logger)
//
//	report, err := orch.Run(ctx)
package reconcile
