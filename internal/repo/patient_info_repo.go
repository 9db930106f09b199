// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PatientInfo model. Weight and height are stored exactly as entered.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/domain"
)

// CreatePatientInfo inserts a weight/height record and returns it with the
// generated ID.
func CreatePatientInfo(ctx context.Context, db *gorm.DB, weight, height string) (*domain.PatientInfo, error) {
	p := &domain.PatientInfo{Weight: weight, Height: height}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPatientInfo returns every record ordered by ID.
func ListPatientInfo(ctx context.Context, db *gorm.DB) ([]domain.PatientInfo, error) {
	var out []domain.PatientInfo
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// CountPatientInfo returns the total number of records.
func CountPatientInfo(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.PatientInfo{}).Count(&total).Error
	return total, err
}

// ListPatientInfoPage returns a page of records ordered by ID.
func ListPatientInfoPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PatientInfo, error) {
	var out []domain.PatientInfo
	err := db.WithContext(ctx).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetPatientInfo fetches a record by ID, or ErrNotFound.
func GetPatientInfo(ctx context.Context, db *gorm.DB, id int64) (*domain.PatientInfo, error) {
	var p domain.PatientInfo
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePatientInfo removes exactly the row matching p's ID, weight, and
// height. It returns ErrNotFound when no such row exists.
func DeletePatientInfo(ctx context.Context, db *gorm.DB, p domain.PatientInfo) error {
	res := db.WithContext(ctx).
		Where("id = ? AND weight = ? AND height = ?", p.ID, p.Weight, p.Height).
		Delete(&domain.PatientInfo{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
