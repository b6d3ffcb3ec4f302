// Package database provides SQLite connectivity for ledtube-core.
//
// The only durable state the controller keeps is the device registry, so
// the schema is small. Migrations are plain SQL files, embedded by the
// migrations package and passed to Migrate as an fs.FS.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
