package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Migration files live in store/migration/{driver}/. A fresh database is
// initialized from LATEST.sql; incremental upgrades apply the remaining
// NN__description.sql files in lexicographic order, tracked in
// migration_history.

//go:embed migration
var migrationFS embed.FS

const (
	// latestSchemaFileName is used to initialize fresh installations with
	// the current schema.
	latestSchemaFileName = "LATEST.sql"
)

// Migrate brings the database schema up to date.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}

	if !initialized {
		if err := s.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		slog.Info("database initialized from latest schema", "driver", s.profile.Driver)
		return nil
	}

	applied, err := s.listAppliedMigrations(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list applied migrations")
	}

	files, err := s.listMigrationFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		name := filepath.Base(file)
		if applied[name] {
			continue
		}
		buf, err := migrationFS.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file %s", file)
		}
		if err := s.executeMigration(ctx, name, string(buf)); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", name)
		}
		slog.Info("migration applied", "file", name)
	}

	return nil
}

func (s *Store) migrationDir() string {
	return fmt.Sprintf("migration/%s", s.profile.Driver)
}

func (s *Store) listMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, s.migrationDir())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration directory")
	}
	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == latestSchemaFileName {
			continue
		}
		files = append(files, fmt.Sprintf("%s/%s", s.migrationDir(), entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) applyLatestSchema(ctx context.Context) error {
	buf, err := migrationFS.ReadFile(fmt.Sprintf("%s/%s", s.migrationDir(), latestSchemaFileName))
	if err != nil {
		return errors.Wrap(err, "failed to read latest schema file")
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to execute latest schema")
	}

	// Record every incremental migration as applied so upgrades start from
	// the current state.
	files, err := s.listMigrationFiles()
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, file := range files {
		if _, err := tx.ExecContext(ctx, insertMigrationHistory(filepath.Base(file), now)); err != nil {
			return errors.Wrap(err, "failed to record migration history")
		}
	}

	return tx.Commit()
}

func (s *Store) listAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.driver.GetDB().QueryContext(ctx, "SELECT version FROM migration_history")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) executeMigration(ctx context.Context, name, statement string) error {
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, statement); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertMigrationHistory(name, time.Now().Unix())); err != nil {
		return err
	}
	return tx.Commit()
}

// insertMigrationHistory builds the history insert without placeholders so
// the migrator stays driver-agnostic. Version names come from the embedded
// FS, never from user input.
func insertMigrationHistory(version string, ts int64) string {
	return fmt.Sprintf("INSERT INTO migration_history (version, created_ts) VALUES ('%s', %d)", version, ts)
}
