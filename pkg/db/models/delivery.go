package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Delivery tracks physical fulfillment. The oldest delivery of an order is
// its canonical one.
type Delivery struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Status          enums.DeliveryStatus `gorm:"column:status;type:text;not null;index"`
	ScheduledDate   time.Time            `gorm:"column:scheduled_date;not null"`
	DeliveryAddress string               `gorm:"column:delivery_address;type:text;not null;default:''"`
	TrackingNumber  string               `gorm:"column:tracking_number;type:text;not null;uniqueIndex"`
	CompletedAt     *time.Time           `gorm:"column:completed_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Delivery) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
