package domain

import "time"

// JobStatus is the lifecycle state of a deferred job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// DeferredJob is a one-shot unit of work executed once after RunAt. Jobs live
// in their own SQLite file so that they outlive the in-memory state of the
// process that submitted them.
//
// The ID doubles as the tag used to cancel the job individually.
type DeferredJob struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Kind      string    `gorm:"type:varchar(64);not null;index"`
	Payload   string    `gorm:"type:TEXT;not null;default:'{}'"`
	RunAt     time.Time `gorm:"not null;index:idx_jobs_due,priority:2"`
	Status    JobStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_jobs_due,priority:1;check:status IN ('pending','running','done','failed','cancelled')"`
	Attempts  int       `gorm:"not null;default:0"`
	LastError string    `gorm:"type:TEXT"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName implements the GORM tabler interface.
func (DeferredJob) TableName() string { return "deferred_jobs" }

// Idempotency remembers the resource produced by an unsafe request, keyed by
// (user_id, scope, key), so that a retry can be answered without repeating
// side effects such as enqueuing a second reminder.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
