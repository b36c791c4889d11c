package repository

import (
	"context"

	"listing-service/models"

	"gorm.io/gorm"
)

// CandidateRepository selects runnable listing candidates for a category:
// available, priced, regular-sized and not yet present in the listing log.
// The returned list is deduplicated by SKU and deterministically ordered.
type CandidateRepository interface {
	FindPending(ctx context.Context, category string) ([]*models.SKURecord, error)
}

// GormCandidateRepository implements CandidateRepository using GORM.
type GormCandidateRepository struct {
	db *gorm.DB
}

// NewGormCandidateRepository creates a new GormCandidateRepository.
func NewGormCandidateRepository(db *gorm.DB) CandidateRepository {
	return &GormCandidateRepository{db: db}
}

// FindPending excludes already-logged SKUs in the query itself, so the core
// pipeline never sees a SKU with a live log entry.
func (r *GormCandidateRepository) FindPending(ctx context.Context, category string) ([]*models.SKURecord, error) {
	logged := r.db.Model(&models.ListingLog{}).Select("meow_sku")

	var records []*models.SKURecord
	err := r.db.WithContext(ctx).
		Where("LOWER(category_name) = LOWER(?)", category).
		Where("available = ?", true).
		Where("final_price > 0").
		Where("is_oversize = ?", false).
		Where("meow_sku NOT IN (?)", logged).
		Order("meow_sku").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
