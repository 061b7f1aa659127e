package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	splitpay "github.com/goliatone/go-splitpay"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// SourceLabel tags splitpay migrations inside a shared migrator.
	SourceLabel = "go-splitpay"
)

var dialectDirs = map[string]string{
	DialectPostgres: "data/sql/migrations",
	DialectSQLite:   "data/sql/migrations/sqlite",
}

// RegisterFunc hands one dialect's migrations to a migrator.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

// Dialect returns the embedded migrations for dialect. It fails when the
// dialect is unknown or ships no up migrations.
func Dialect(dialect string) (fs.FS, error) {
	name := strings.ToLower(strings.TrimSpace(dialect))
	dir, ok := dialectDirs[name]
	if !ok {
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
	sub, err := fs.Sub(splitpay.GetMigrationsFS(), dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", name, err)
	}
	matches, err := fs.Glob(sub, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("migrations: %s has no *.up.sql files", dir)
	}
	return sub, nil
}

// Register passes the migrations of each listed dialect to registerFn, or of
// both dialects when none is listed.
func Register(ctx context.Context, registerFn RegisterFunc, dialects ...string) error {
	if registerFn == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	if len(dialects) == 0 {
		dialects = []string{DialectPostgres, DialectSQLite}
	}
	for _, dialect := range dialects {
		fsys, err := Dialect(dialect)
		if err != nil {
			return err
		}
		if err := registerFn(ctx, strings.ToLower(strings.TrimSpace(dialect)), SourceLabel, fsys); err != nil {
			return fmt.Errorf("migrations: register %s: %w", dialect, err)
		}
	}
	return nil
}
