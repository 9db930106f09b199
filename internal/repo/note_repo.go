// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Note model.
//
// All functions are context-aware and accept a *gorm.DB handle. They follow
// the "thin repository" approach: no business logic, only persistence and
// query composition. There is deliberately no update: an edit is a delete
// followed by a fresh insert.
//
// Error semantics:
//   - When a note is not found, functions return ErrNotFound.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateNote inserts a note and returns it with the generated ID.
func CreateNote(ctx context.Context, db *gorm.DB, text, date, tod string) (*domain.Note, error) {
	n := &domain.Note{NoteText: text, Date: date, Time: tod}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotes returns every note ordered by ID (insertion order).
func ListNotes(ctx context.Context, db *gorm.DB) ([]domain.Note, error) {
	var out []domain.Note
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// CountNotes returns the total number of notes.
func CountNotes(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Note{}).Count(&total).Error
	return total, err
}

// ListNotesPage returns a page of notes ordered by ID.
func ListNotesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Note, error) {
	var out []domain.Note
	err := db.WithContext(ctx).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetNote fetches a note by ID, or ErrNotFound.
func GetNote(ctx context.Context, db *gorm.DB, id int64) (*domain.Note, error) {
	var n domain.Note
	if err := db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes the row whose ID and fields all match n. It returns
// ErrNotFound when no such row exists.
func DeleteNote(ctx context.Context, db *gorm.DB, n domain.Note) error {
	res := db.WithContext(ctx).
		Where("id = ? AND noteText = ? AND date = ? AND time = ?", n.ID, n.NoteText, n.Date, n.Time).
		Delete(&domain.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
