package repository

import (
	"context"

	"listing-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListingLogRepository defines data access for the idempotent listing log.
type ListingLogRepository interface {
	// InsertIfAbsent persists one entry keyed by meow_sku. It returns
	// false when the SKU is already logged; the uniqueness guarantee is
	// enforced by the store, not by application locking.
	InsertIfAbsent(ctx context.Context, entry *models.ListingLog) (bool, error)
	ListAlreadyLogged(ctx context.Context, skus []string) ([]string, error)
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ListingLog, error)
	// MarkListed flips GENERATED entries to LISTED for SKUs present in the
	// marketplace listing report, returning the number updated.
	MarkListed(ctx context.Context) (int64, error)
}

// GormListingLogRepository implements ListingLogRepository using GORM.
type GormListingLogRepository struct {
	db *gorm.DB
}

// NewGormListingLogRepository creates a new GormListingLogRepository.
func NewGormListingLogRepository(db *gorm.DB) ListingLogRepository {
	return &GormListingLogRepository{db: db}
}

// InsertIfAbsent relies on ON CONFLICT DO NOTHING over the meow_sku unique
// index; zero rows affected is the conflict indicator.
func (r *GormListingLogRepository) InsertIfAbsent(ctx context.Context, entry *models.ListingLog) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meow_sku"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListAlreadyLogged returns the subset of skus that already have a log
// entry, for candidate exclusion before resolution runs.
func (r *GormListingLogRepository) ListAlreadyLogged(ctx context.Context, skus []string) ([]string, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var logged []string
	err := r.db.WithContext(ctx).
		Model(&models.ListingLog{}).
		Where("meow_sku IN ?", skus).
		Order("meow_sku").
		Pluck("meow_sku", &logged).Error
	if err != nil {
		return nil, err
	}
	return logged, nil
}

// FindByBatch returns all entries emitted by one run, for auditing.
func (r *GormListingLogRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ListingLog, error) {
	var entries []models.ListingLog
	err := r.db.WithContext(ctx).
		Where("listing_batch_id = ?", batchID).
		Order("meow_sku").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkListed syncs log status against the marketplace report table.
func (r *GormListingLogRepository) MarkListed(ctx context.Context) (int64, error) {
	sub := r.db.Model(&models.MarketplaceListingReport{}).
		Select("seller_sku").
		Where("status IN ?", []string{"Active", "Inactive"})

	result := r.db.WithContext(ctx).
		Model(&models.ListingLog{}).
		Where("status = ?", models.ListingStatusGenerated).
		Where("meow_sku IN (?)", sub).
		Update("status", models.ListingStatusListed)
	return result.RowsAffected, result.Error
}
