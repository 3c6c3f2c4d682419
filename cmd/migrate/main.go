package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dhawalhost/permitkit/pkg/config"
	"github.com/dhawalhost/permitkit/pkg/database"
	"github.com/dhawalhost/permitkit/pkg/logger"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func main() {
	log, err := logger.New("info", "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	mode, dir, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatal("Invalid arguments", zap.Error(err))
	}
	dbCfg, err := config.DatabaseFromEnv()
	if err != nil {
		log.Fatal("Invalid database configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch mode {
	case modeDown:
		if err := rollback(ctx, db, dir, log); err != nil {
			log.Fatal("Rollback failed", zap.Error(err))
		}
	default:
		if err := migrate(ctx, db, dir, log); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("All migrations applied")
	}
}

const (
	modeUp   = "up"
	modeDown = "down"
)

// parseArgs accepts `[up|down] [dir]`. A lone argument that is not a mode is
// taken as the directory.
func parseArgs(args []string) (mode, dir string, err error) {
	mode, dir = modeUp, "migrations"
	if len(args) > 0 && (args[0] == modeUp || args[0] == modeDown) {
		mode, args = args[0], args[1:]
	}
	switch len(args) {
	case 0:
	case 1:
		dir = args[0]
	default:
		return "", "", fmt.Errorf("usage: migrate [up|down] [dir]")
	}
	return mode, dir, nil
}

func ensureMigrationsTable(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// migrate applies every *.up.sql file in dir, in name order, that is not yet
// recorded in schema_migrations. Each file runs in its own transaction.
func migrate(ctx context.Context, db *sqlx.DB, dir string, log *zap.Logger) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}
	var ups []string
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".up.sql") {
			ups = append(ups, f.Name())
		}
	}
	sort.Strings(ups)

	for _, name := range ups {
		version := strings.TrimSuffix(name, ".up.sql")
		if done[version] {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		log.Info("Applied migration", zap.String("version", version))
	}
	return nil
}

// rollback reverts the most recently applied migration using its .down.sql file
// and removes it from schema_migrations in the same transaction.
func rollback(ctx context.Context, db *sqlx.DB, dir string, log *zap.Logger) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}

	var version string
	err := db.GetContext(ctx, &version, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find latest migration: %w", err)
	}

	name := version + ".down.sql"
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("unrecord %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	log.Info("Rolled back migration", zap.String("version", version))
	return nil
}
