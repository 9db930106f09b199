// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains the versioned schema migrator for the
// user-data tables.
//
// The on-disk schema version is kept in SQLite's PRAGMA user_version. On open,
// the stored version is brought forward to SchemaVersion by applying an
// ordered chain of forward-only steps. When no registered chain covers the
// stored version (a gap, a downgrade, an unknown number) every table is
// dropped and the current schema is created empty: startup never fails
// because of an old file, at the price of losing its data.
package repo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SchemaVersion is the version of the user-data schema this build expects.
const SchemaVersion = 4

// Migration upgrades the schema from version From to version To.
type Migration struct {
	From int
	To   int
	Name string
	Up   func(tx *gorm.DB) error
}

// Outcome describes what Migrate did to the store.
type Outcome string

const (
	OutcomeUpToDate  Outcome = "up_to_date"
	OutcomeCreated   Outcome = "created"
	OutcomeMigrated  Outcome = "migrated"
	OutcomeRecreated Outcome = "recreated"
)

// createSchemaSQL creates the current (v4) schema from scratch.
var createSchemaSQL = []string{
	"CREATE TABLE IF NOT EXISTS `patient_info` (" +
		"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, " +
		"`weight` TEXT NOT NULL, " +
		"`height` TEXT NOT NULL)",
	"CREATE TABLE IF NOT EXISTS `notes` (" +
		"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, " +
		"`noteText` TEXT NOT NULL, " +
		"`date` TEXT NOT NULL, " +
		"`time` TEXT NOT NULL)",
}

// Placeholders written into notes that predate the date/time columns.
const (
	legacyNoteDate = "2025-01-01"
	legacyNoteTime = "00:00"
)

// DefaultMigrations is the registered upgrade chain v1 → v4.
var DefaultMigrations = []Migration{
	{
		From: 1, To: 2, Name: "create patient_info",
		Up: execAll(
			"CREATE TABLE IF NOT EXISTS `patient_info` (" +
				"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, " +
				"`weight` TEXT NOT NULL, " +
				"`height` TEXT NOT NULL)",
		),
	},
	{
		From: 2, To: 3, Name: "create notes",
		Up: execAll(
			"CREATE TABLE IF NOT EXISTS `notes` (" +
				"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, " +
				"`noteText` TEXT NOT NULL)",
		),
	},
	{
		From: 3, To: 4, Name: "add date/time to notes",
		Up: execAll(
			"CREATE TABLE IF NOT EXISTS `notes_new` (" +
				"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, " +
				"`noteText` TEXT NOT NULL, " +
				"`date` TEXT NOT NULL, " +
				"`time` TEXT NOT NULL)",
			"INSERT INTO `notes_new` (`id`, `noteText`, `date`, `time`) " +
				"SELECT `id`, `noteText`, '" + legacyNoteDate + "', '" + legacyNoteTime + "' FROM `notes`",
			"DROP TABLE `notes`",
			"ALTER TABLE `notes_new` RENAME TO `notes`",
		),
	},
}

func execAll(stmts ...string) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		for _, s := range stmts {
			if err := tx.Exec(s).Error; err != nil {
				return err
			}
		}
		return nil
	}
}

// Migrator applies Migrations until the store reaches Target.
type Migrator struct {
	Migrations []Migration
	Target     int
	Create     []string
	Log        zerolog.Logger
}

// NewMigrator returns a Migrator for the default chain and SchemaVersion.
func NewMigrator(log zerolog.Logger) *Migrator {
	return &Migrator{
		Migrations: DefaultMigrations,
		Target:     SchemaVersion,
		Create:     createSchemaSQL,
		Log:        log,
	}
}

// UserVersion reads PRAGMA user_version.
func UserVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var v int
	if err := db.WithContext(ctx).Raw("PRAGMA user_version;").Row().Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func setUserVersion(tx *gorm.DB, v int) error {
	// PRAGMA arguments cannot be bound.
	return tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", v)).Error
}

// Migrate brings db to m.Target. It returns what was done; an error is
// returned only when a statement fails, never for an unsupported version.
func (m *Migrator) Migrate(ctx context.Context, db *gorm.DB) (Outcome, error) {
	from, err := UserVersion(ctx, db)
	if err != nil {
		return "", fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case from == m.Target:
		return OutcomeUpToDate, nil
	case from == 0:
		tables, err := userTables(ctx, db)
		if err != nil {
			return "", err
		}
		if err := m.recreate(ctx, db); err != nil {
			return "", err
		}
		if len(tables) > 0 {
			m.Log.Warn().Strs("tables", tables).Msg("unversioned store recreated")
			return OutcomeRecreated, nil
		}
		m.Log.Info().Int("version", m.Target).Msg("store created")
		return OutcomeCreated, nil
	}

	steps := m.path(from)
	if steps == nil {
		m.Log.Warn().
			Int("from", from).
			Int("to", m.Target).
			Msg("no migration path; recreating store, existing data is discarded")
		if err := m.recreate(ctx, db); err != nil {
			return "", err
		}
		return OutcomeRecreated, nil
	}

	for _, step := range steps {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := step.Up(tx); err != nil {
				return err
			}
			return setUserVersion(tx, step.To)
		})
		if err != nil {
			return "", fmt.Errorf("migration %d->%d (%s): %w", step.From, step.To, step.Name, err)
		}
		m.Log.Info().Int("from", step.From).Int("to", step.To).Str("step", step.Name).Msg("schema migrated")
	}
	return OutcomeMigrated, nil
}

// path returns the steps leading from version from to m.Target, or nil when
// the registered migrations do not connect them. At each version the step
// that jumps furthest without overshooting the target is taken.
func (m *Migrator) path(from int) []Migration {
	if from > m.Target {
		return nil
	}
	var steps []Migration
	for cur := from; cur < m.Target; {
		best := -1
		for i, mg := range m.Migrations {
			if mg.From != cur || mg.To <= cur || mg.To > m.Target {
				continue
			}
			if best < 0 || mg.To > m.Migrations[best].To {
				best = i
			}
		}
		if best < 0 {
			return nil
		}
		steps = append(steps, m.Migrations[best])
		cur = m.Migrations[best].To
	}
	return steps
}

// recreate drops every user table and creates the current schema, all in
// one transaction.
func (m *Migrator) recreate(ctx context.Context, db *gorm.DB) error {
	tables, err := userTables(ctx, db)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Exec("DROP TABLE IF EXISTS `" + t + "`").Error; err != nil {
				return fmt.Errorf("drop %s: %w", t, err)
			}
		}
		if err := execAll(m.Create...)(tx); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return setUserVersion(tx, m.Target)
	})
}

func userTables(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Raw("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name").
		Scan(&names).Error
	return names, err
}
