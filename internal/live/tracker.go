// Package live turns store writes into continuously updated query results.
//
// A Tracker is a GORM plugin that observes committed creates, updates, and
// deletes and reports the affected table. A Feed re-runs one query whenever
// its table changes and hands the fresh result set to every subscriber.
package live

import (
	"sync"

	"gorm.io/gorm"
)

// Tracker invalidates watchers of a table after each committed write to it.
// Raw SQL executed through db.Exec is not observed.
type Tracker struct {
	mu       sync.RWMutex
	watchers map[string][]func()
}

// NewTracker returns an empty Tracker. Install it with db.Use.
func NewTracker() *Tracker {
	return &Tracker{watchers: make(map[string][]func())}
}

// Name implements gorm.Plugin.
func (t *Tracker) Name() string { return "live:tracker" }

// Initialize implements gorm.Plugin. Callbacks run after the implicit
// transaction commits so that watchers reading on another connection see
// the new rows.
func (t *Tracker) Initialize(db *gorm.DB) error {
	const after = "gorm:commit_or_rollback_transaction"
	if err := db.Callback().Create().After(after).Register("live:after_create", t.afterWrite); err != nil {
		return err
	}
	if err := db.Callback().Update().After(after).Register("live:after_update", t.afterWrite); err != nil {
		return err
	}
	return db.Callback().Delete().After(after).Register("live:after_delete", t.afterWrite)
}

// Watch registers fn to be called after every committed write to table.
// fn runs on the writer's goroutine and must not block.
func (t *Tracker) Watch(table string, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.watchers[table] = append(t.watchers[table], fn)
}

// Changed notifies watchers of table directly.
func (t *Tracker) Changed(table string) {
	t.mu.RLock()
	fns := t.watchers[table]
	t.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (t *Tracker) afterWrite(tx *gorm.DB) {
	if tx.Error != nil || tx.RowsAffected == 0 || tx.Statement == nil {
		return
	}
	t.Changed(tx.Statement.Table)
}
