// Package database opens the optional run history database and inspects its schema.
//
// It wraps GORM with the sqlite and MySQL drivers. sqlite is the default so a local
// install keeps history in a single file; MySQL suits shared deployments.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table on either dialect, and MissingColumns
// compares them with the columns a model expects. The history store uses this to
// refuse a stale schema when auto-migration is disabled.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("History disabled", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "sync_runs", []string{"id", "pipeline"})
package database
