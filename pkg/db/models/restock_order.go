package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// RestockOrder requests replenishment of an inventory item.
type RestockOrder struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	DistributorID   uuid.UUID           `gorm:"column:distributor_id;type:uuid;not null;index"`
	InventoryItemID uuid.UUID           `gorm:"column:inventory_item_id;type:uuid;not null;index;uniqueIndex:ux_restock_orders_open_item,where:status = 'pending'"`
	SupplierID      *uuid.UUID          `gorm:"column:supplier_id;type:uuid"`
	Quantity        int                 `gorm:"column:quantity;not null"`
	Status          enums.RestockStatus `gorm:"column:status;type:text;not null;index"`
	RequestedAt     time.Time           `gorm:"column:requested_at;not null"`
	ReceivedAt      *time.Time          `gorm:"column:received_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RestockOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
