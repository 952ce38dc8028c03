// Package database provides SQLite connectivity for Homepanel Core.
//
// This package manages:
//   - Database connection with WAL mode and foreign keys enforced
//   - Versioned schema migrations (see the migrations package)
//   - Translation of SQLite constraint failures (IsUniqueViolation)
//
// All uniqueness invariants of the entity store (device names, room names,
// per-house device ids, one admin per house) live in the schema as unique
// indexes, so concurrent requests cannot race past an application check.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
