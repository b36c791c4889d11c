package models

import (
	"time"

	"gorm.io/datatypes"
)

// SKURecord is one product row in the catalog. It is written by the vendor
// sync pipeline and read-only to this service.
type SKURecord struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	MeowSKU       string            `gorm:"column:meow_sku;type:varchar(128);uniqueIndex;not null" json:"meow_sku"`
	VendorSKU     string            `gorm:"column:vendor_sku;type:varchar(128);index;not null" json:"vendor_sku"`
	VendorSource  string            `gorm:"column:vendor_source;type:varchar(32);not null" json:"vendor_source"`
	CategoryName  string            `gorm:"column:category_name;type:varchar(128);index" json:"category_name"`
	ProductName   string            `gorm:"column:product_name" json:"product_name"`
	Description   string            `gorm:"column:product_description" json:"product_description"`
	Attributes    datatypes.JSONMap `gorm:"column:attributes" json:"attributes"`
	RawData       datatypes.JSONMap `gorm:"column:raw_data" json:"raw_data"`
	FinalPrice    float64           `gorm:"column:final_price" json:"final_price"`
	TotalQuantity int               `gorm:"column:total_quantity" json:"total_quantity"`
	Available     bool              `gorm:"column:available;not null;default:false" json:"available"`
	Oversize      bool              `gorm:"column:is_oversize;not null;default:false" json:"is_oversize"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default pluralization.
func (SKURecord) TableName() string { return "sku_records" }

// StringAttributes flattens the JSONB attribute map into string values.
// Non-string scalars are stringified; nested values are dropped.
func (s *SKURecord) StringAttributes() map[string]string {
	out := make(map[string]string, len(s.Attributes))
	for k, v := range s.Attributes {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = trimFloat(val)
		case bool:
			if val {
				out[k] = "true"
			} else {
				out[k] = "false"
			}
		}
	}
	return out
}
