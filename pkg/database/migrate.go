package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrator is the subset of a pgx pool used to apply migrations. Both
// *pgxpool.Pool and pgxmock pools satisfy it.
type Migrator interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	upSuffix = ".up.sql"

	createTrackingTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	migrationAppliedSQL = "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)"
	recordMigrationSQL  = "INSERT INTO schema_migrations (version) VALUES ($1)"
)

// RunMigrations applies every *.up.sql file at the root of migrations in
// name order, each in its own transaction, and records it in
// schema_migrations. Applied versions are skipped. Connection failures are
// retried; SQL errors are not.
func RunMigrations(ctx context.Context, pool Migrator, migrations fs.FS, logger *slog.Logger) error {
	return withRetry(ctx, logger, "run migrations", isConnectionError, func() error {
		return migrateOnce(ctx, pool, migrations, logger)
	})
}

func migrateOnce(ctx context.Context, pool Migrator, migrations fs.FS, logger *slog.Logger) error {
	if _, err := pool.Exec(ctx, createTrackingTableSQL); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	// fs.ReadDir returns entries sorted by name.
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for _, entry := range entries {
		version := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(version, upSuffix) {
			continue
		}

		var applied bool
		if err := pool.QueryRow(ctx, migrationAppliedSQL, version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied {
			logger.Debug("migration already applied", slog.String("version", version))
			continue
		}

		content, err := fs.ReadFile(migrations, version)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}
		if err := applyMigration(ctx, pool, version, string(content)); err != nil {
			return err
		}
		logger.Info("migration applied", slog.String("version", version))
	}
	return nil
}

// applyMigration runs one migration and records its version atomically.
func applyMigration(ctx context.Context, pool Migrator, version, sql string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx for migration %s: %w", version, err)
	}
	if _, err := tx.Exec(ctx, sql); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("execute migration %s: %w", version, err)
	}
	if _, err := tx.Exec(ctx, recordMigrationSQL, version); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
