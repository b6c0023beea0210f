// Package dbschema applies a service's SQL migrations at startup. It
// generalizes the pack's test-only ApplyMigrations helper (join-service)
// into something each service's main() runs before serving traffic.
package dbschema

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Apply reads every *.sql file embedded at the root of migrations,
// sorts them lexically, and executes each in order. Migration files
// are expected to be idempotent (CREATE TABLE IF NOT EXISTS, etc.)
// since no applied-migrations ledger is kept — this is intentionally
// the simplest thing that lets both services start from a clean
// database.
func Apply(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("dbschema: read migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(migrations, path.Join(".", name))
		if err != nil {
			return fmt.Errorf("dbschema: read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("dbschema: apply %s: %w", name, err)
		}
	}
	return nil
}
