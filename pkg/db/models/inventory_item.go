package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// InventoryItem is distributor-held stock, independent of crops.
type InventoryItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	DistributorID   uuid.UUID  `gorm:"column:distributor_id;type:uuid;not null;index"`
	SupplierID      *uuid.UUID `gorm:"column:supplier_id;type:uuid"`
	Name            string     `gorm:"column:name;type:text;not null"`
	SKU             string     `gorm:"column:sku;type:text;not null;default:''"`
	Unit            enums.Unit `gorm:"column:unit;type:text;not null"`
	Quantity        int        `gorm:"column:quantity;not null;check:chk_inventory_items_quantity,quantity >= 0"`
	ReorderLevel    int        `gorm:"column:reorder_level;not null;default:0"`
	ReorderQuantity int        `gorm:"column:reorder_quantity;not null;default:0"`
	Location        *string    `gorm:"column:location;type:text"`
	ImageURL        *string    `gorm:"column:image_url;type:text"`
	ThumbnailURL    *string    `gorm:"column:thumbnail_url;type:text"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// IsLowStock reports whether the item sits at or below its reorder level.
func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}
