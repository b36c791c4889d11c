package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ListingStatus tracks a logged SKU through its lifecycle.
type ListingStatus string

const (
	ListingStatusGenerated ListingStatus = "GENERATED"
	ListingStatusListed    ListingStatus = "LISTED"
)

// ParentSKUSingle marks singleton entries in the listing log.
const ParentSKUSingle = "SINGLE_PRODUCT"

// ListingLog is one emitted-SKU record. The unique index on meow_sku is the
// idempotency boundary: a second insert attempt for the same SKU must
// surface a conflict, never a duplicate.
type ListingLog struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	MeowSKU             string            `gorm:"column:meow_sku;type:varchar(128);uniqueIndex;not null" json:"meow_sku"`
	ParentSKU           string            `gorm:"column:parent_sku;type:varchar(128);index" json:"parent_sku"`
	VariationAttributes datatypes.JSONMap `gorm:"column:variation_attributes" json:"variation_attributes"`
	ListingBatchID      uuid.UUID         `gorm:"column:listing_batch_id;type:uuid;index" json:"listing_batch_id"`
	Status              ListingStatus     `gorm:"type:varchar(20);not null;default:'GENERATED'" json:"status"`
	VariationTheme      string            `gorm:"column:variation_theme;type:varchar(128)" json:"variation_theme"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default pluralization.
func (ListingLog) TableName() string { return "listing_logs" }
