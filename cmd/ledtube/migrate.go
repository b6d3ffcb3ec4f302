package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nerrad567/ledtube-core/internal/infrastructure/database"
	"github.com/nerrad567/ledtube-core/migrations"
)

// migrateCommand implements "ledtube migrate [up|down|status]" against the
// configured device database. With no argument it prints the status.
func migrateCommand(ctx context.Context, args []string, w io.Writer) error {
	action := "status"
	if len(args) > 0 {
		action = args[0]
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Database.Enabled {
		return errors.New("database is disabled; registrations are kept in memory")
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-mostly CLI path

	switch action {
	case "up":
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(ctx, migrations.FS); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}

	applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "database: %s\n", db.Path())
	for _, r := range applied {
		fmt.Fprintf(w, "  applied  %s  %s\n", r.Version, r.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "  pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}
