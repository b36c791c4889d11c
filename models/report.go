package models

import "time"

// MarketplaceListingReport mirrors the marketplace's full listing report:
// one row per live seller SKU, imported by the report-sync pipeline. The
// listing log's status sync reads it; this service never writes it.
type MarketplaceListingReport struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SellerSKU string    `gorm:"column:seller_sku;type:varchar(128);index;not null" json:"seller_sku"`
	Status    string    `gorm:"type:varchar(32);index" json:"status"` // Active | Inactive | Incomplete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the default pluralization.
func (MarketplaceListingReport) TableName() string { return "marketplace_listing_reports" }
