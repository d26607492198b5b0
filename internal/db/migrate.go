package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// MigrationNames lists the schema files for driver in apply order.
func MigrationNames(driver Driver) ([]string, error) {
	entries, err := fs.Glob(migrationFiles, path.Join("migrations", string(driver), "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(entries)
	return entries, nil
}

// Migrate applies every embedded migration for the handle's driver. The files
// are idempotent so this is safe to run on every start.
func (h *Handle) Migrate(ctx context.Context) error {
	names, err := MigrationNames(h.Driver)
	if err != nil {
		return err
	}
	for _, name := range names {
		b, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if h.Pool != nil {
			_, err = h.Pool.Exec(ctx, string(b))
		} else {
			_, err = h.SQL.ExecContext(ctx, string(b))
		}
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
