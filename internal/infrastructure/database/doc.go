// Package database provides SQLite connectivity for StayFlow Core.
//
// This package manages:
//   - The connection (WAL mode, busy timeout, foreign keys)
//   - Versioned schema migrations read from any fs.FS
//   - Transaction helpers
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
package database
