package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Product is farmer-owned stock that retailers buy through checkout.
type Product struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID        uuid.UUID       `gorm:"column:farmer_id;type:uuid;not null;index"`
	CropID          *uuid.UUID      `gorm:"column:crop_id;type:uuid"`
	Name            string          `gorm:"column:name;type:text;not null"`
	Category        string          `gorm:"column:category;type:text;not null;default:''"`
	Unit            enums.Unit      `gorm:"column:unit;type:text;not null"`
	PricePerUnit    decimal.Decimal `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	StockQuantity   int             `gorm:"column:stock_quantity;not null;check:chk_products_stock,stock_quantity >= 0"`
	ReorderLevel    int             `gorm:"column:reorder_level;not null;default:0"`
	ReorderQuantity int             `gorm:"column:reorder_quantity;not null;default:0"`
	ImageURL        *string         `gorm:"column:image_url;type:text"`
	ThumbnailURL    *string         `gorm:"column:thumbnail_url;type:text"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
