// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for DeferredJob,
// the persisted queue behind delayed reminders.
//
// Status transitions:
//
//	pending -> running -> done | failed
//	pending -> cancelled
//
// Every transition is a conditional UPDATE on the current status, so a job
// that is cancelled while it is being claimed ends up in exactly one state.
// All timestamps are stored in UTC; SQLite compares them as text.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/domain"
)

// EnqueueJob inserts j as pending. CreatedAt/UpdatedAt and RunAt are
// normalized to UTC.
func EnqueueJob(ctx context.Context, db *gorm.DB, j *domain.DeferredJob) error {
	now := time.Now().UTC()
	j.Status = domain.JobPending
	j.RunAt = j.RunAt.UTC()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.Payload == "" {
		j.Payload = "{}"
	}
	return db.WithContext(ctx).Create(j).Error
}

// GetJob fetches a job by ID, or ErrNotFound.
func GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.DeferredJob, error) {
	var j domain.DeferredJob
	if err := db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// DueJobs returns up to limit pending jobs whose RunAt is not after now,
// earliest first.
func DueJobs(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.DeferredJob, error) {
	var out []domain.DeferredJob
	err := db.WithContext(ctx).
		Where("status = ? AND run_at <= ?", domain.JobPending, now.UTC()).
		Order("run_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ClaimJob moves a pending job to running. It reports false when the job was
// no longer pending (cancelled or claimed elsewhere).
func ClaimJob(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.DeferredJob{}).
		Where("id = ? AND status = ?", id, domain.JobPending).
		Updates(map[string]any{
			"status":     domain.JobRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

// FinishJob records the outcome of a running job. An empty errMsg marks it
// done, anything else marks it failed.
func FinishJob(ctx context.Context, db *gorm.DB, id string, errMsg string) error {
	status := domain.JobDone
	if errMsg != "" {
		status = domain.JobFailed
	}
	res := db.WithContext(ctx).
		Model(&domain.DeferredJob{}).
		Where("id = ? AND status = ?", id, domain.JobRunning).
		Updates(map[string]any{
			"status":     status,
			"last_error": errMsg,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelJob marks a pending job cancelled. It reports false when the job does
// not exist or already left the pending state (it fired or was cancelled).
func CancelJob(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.DeferredJob{}).
		Where("id = ? AND status = ?", id, domain.JobPending).
		Updates(map[string]any{
			"status":     domain.JobCancelled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

// FailInterruptedJobs marks jobs left running by a previous process as
// failed. Reminders are never retried, so they are not re-queued.
func FailInterruptedJobs(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.DeferredJob{}).
		Where("status = ?", domain.JobRunning).
		Updates(map[string]any{
			"status":     domain.JobFailed,
			"last_error": "interrupted",
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CountJobs returns how many jobs are in status.
func CountJobs(ctx context.Context, db *gorm.DB, status domain.JobStatus) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.DeferredJob{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
