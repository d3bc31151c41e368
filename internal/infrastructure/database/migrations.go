package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kardex-ingest/pkg/logger"

	"gorm.io/gorm"
)

// Migration is one SQL migration file, named "<id>_<description>.sql"
type Migration struct {
	ID          string
	Description string
	SQL         string
	AppliedAt   *time.Time
}

// MigrationRunner applies SQL files from a directory in lexical order,
// recording applied ids in schema_migrations
type MigrationRunner struct {
	db            *gorm.DB
	migrationsDir string
}

func NewMigrationRunner(db *gorm.DB, migrationsDir string) *MigrationRunner {
	return &MigrationRunner{
		db:            db,
		migrationsDir: migrationsDir,
	}
}

func (mr *MigrationRunner) createMigrationsTable() error {
	sql := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id VARCHAR(255) PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	return mr.db.Exec(sql).Error
}

func (mr *MigrationRunner) appliedMigrations() (map[string]bool, error) {
	var ids []string
	if err := mr.db.Raw("SELECT id FROM schema_migrations ORDER BY id").Scan(&ids).Error; err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(ids))
	for _, id := range ids {
		applied[id] = true
	}
	return applied, nil
}

func (mr *MigrationRunner) loadMigrations() ([]*Migration, error) {
	entries, err := os.ReadDir(mr.migrationsDir)
	if err != nil {
		return nil, err
	}

	var migrations []*Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(mr.migrationsDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid migration filename format: %s", entry.Name())
		}

		migrations = append(migrations, &Migration{
			ID:          parts[0],
			Description: strings.ReplaceAll(strings.TrimSuffix(parts[1], ".sql"), "_", " "),
			SQL:         string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return migrations, nil
}

// RunMigrations applies every pending migration inside its own transaction
func (mr *MigrationRunner) RunMigrations() error {
	if err := mr.db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to create uuid extension: %w", err)
	}

	if err := mr.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.appliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrations, err := mr.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migration files: %w", err)
	}

	pending := 0
	for _, migration := range migrations {
		if applied[migration.ID] {
			continue
		}

		err := mr.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(migration.SQL).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", migration.ID, err)
			}
			return tx.Exec("INSERT INTO schema_migrations (id, description) VALUES (?, ?)",
				migration.ID, migration.Description).Error
		})
		if err != nil {
			return err
		}

		logger.Info("Applied migration %s - %s", migration.ID, migration.Description)
		pending++
	}

	if pending == 0 {
		logger.Info("No pending migrations to apply")
	} else {
		logger.Info("Successfully applied %d migrations", pending)
	}
	return nil
}

// GetMigrationStatus lists all migrations with their applied timestamps
func (mr *MigrationRunner) GetMigrationStatus() ([]Migration, error) {
	applied, err := mr.appliedMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrations, err := mr.loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migration files: %w", err)
	}

	var status []Migration
	for _, migration := range migrations {
		if applied[migration.ID] {
			var appliedAt time.Time
			if err := mr.db.Raw("SELECT applied_at FROM schema_migrations WHERE id = ?", migration.ID).Scan(&appliedAt).Error; err == nil {
				migration.AppliedAt = &appliedAt
			}
		}
		status = append(status, *migration)
	}
	return status, nil
}
