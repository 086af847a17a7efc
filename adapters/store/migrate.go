package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/layer-3/questor/adapters/store/migrations"
)

const migrationTable = "schema_migrations"

// ApplyMigrations executes the embedded migrations of a dialect at most once per file
func ApplyMigrations(ctx context.Context, db *sqlx.DB, dialect string) error {
	entries, err := fs.ReadDir(migrations.FS, dialect)
	if err != nil {
		return fmt.Errorf("read migrations for %s: %w", dialect, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var applied int
		query := db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE name = ?", migrationTable))
		if err := db.GetContext(ctx, &applied, query, file); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied > 0 {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, path.Join(dialect, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		err = withTx(ctx, db, func(tx *sqlx.Tx) error {
			for _, stmt := range splitStatements(string(content)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			insert := tx.Rebind(fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (?, ?)", migrationTable))
			_, err := tx.ExecContext(ctx, insert, file, time.Now().UnixMilli())
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}

// splitStatements splits a migration file on semicolons; migrations contain no procedural bodies
func splitStatements(content string) []string {
	var out []string
	for _, stmt := range strings.Split(content, ";") {
		if strings.TrimSpace(stmt) != "" {
			out = append(out, stmt)
		}
	}
	return out
}
