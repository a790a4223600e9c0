package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Order is a purchase. Checkout produces a parent order per retailer and one
// child order per farmer linked through ParentOrderID.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID        *uuid.UUID        `gorm:"column:farmer_id;type:uuid;index"`
	RetailerID      *uuid.UUID        `gorm:"column:retailer_id;type:uuid;index"`
	DistributorID   *uuid.UUID        `gorm:"column:distributor_id;type:uuid;index"`
	ParentOrderID   *uuid.UUID        `gorm:"column:parent_order_id;type:uuid;index"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;index"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Notes           *string           `gorm:"column:notes;type:text"`
	DeliveryAddress *string           `gorm:"column:delivery_address;type:text"`
	CompletedAt     *time.Time        `gorm:"column:completed_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// IsChild reports whether the order is a per-farmer split of a parent.
func (o Order) IsChild() bool {
	return o.ParentOrderID != nil
}

// OrderItem is a single line of an order, backed by a crop or a product.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	CropID       *uuid.UUID      `gorm:"column:crop_id;type:uuid"`
	ProductID    *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Name         string          `gorm:"column:name;type:text;not null;default:''"`
	Quantity     int             `gorm:"column:quantity;not null;check:chk_order_items_quantity,quantity > 0"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
