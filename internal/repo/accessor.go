// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides Accessor, which owns the single
// application store handle of a process.
package repo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Accessor lazily opens, migrates, and hands out one shared *gorm.DB.
//
// The first Get pays for opening the file, running the schema migrator, and
// creating GORM-managed tables; every later Get returns the same handle.
// Concurrent first calls are serialized, so the store is opened exactly once.
// A failed open is not remembered: the next Get tries again.
//
// An Accessor is built explicitly at composition time and passed to whoever
// needs the store; there is no package-level instance.
type Accessor struct {
	path     string
	migrator *Migrator
	plugins  []gorm.Plugin
	log      zerolog.Logger

	mu sync.Mutex
	db atomic.Pointer[gorm.DB]
}

// NewAccessor returns an Accessor for the SQLite file at path. Plugins are
// installed on the handle right after it is opened.
func NewAccessor(path string, migrator *Migrator, log zerolog.Logger, plugins ...gorm.Plugin) *Accessor {
	return &Accessor{path: path, migrator: migrator, plugins: plugins, log: log}
}

// Get returns the shared handle, opening and migrating the store on first use.
func (a *Accessor) Get(ctx context.Context) (*gorm.DB, error) {
	if db := a.db.Load(); db != nil {
		return db, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if db := a.db.Load(); db != nil {
		return db, nil
	}

	db, err := OpenSQLite(a.path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.path, err)
	}
	for _, p := range a.plugins {
		if err := db.Use(p); err != nil {
			_ = Close(db)
			return nil, fmt.Errorf("install plugin %s: %w", p.Name(), err)
		}
	}
	outcome, err := a.migrator.Migrate(ctx, db)
	if err != nil {
		_ = Close(db)
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	a.log.Info().Str("path", a.path).Str("schema", string(outcome)).Msg("store ready")
	a.db.Store(db)
	return db, nil
}

// MustGet is Get for composition roots; it panics on failure.
func (a *Accessor) MustGet(ctx context.Context) *gorm.DB {
	db, err := a.Get(ctx)
	if err != nil {
		panic(err)
	}
	return db
}

// Close releases the handle if it was opened. The Accessor may be reused
// afterwards; the next Get opens the store again.
func (a *Accessor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	db := a.db.Swap(nil)
	return Close(db)
}
