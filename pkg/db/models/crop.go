package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Crop is a farmer's planting, tracked from growing through sale.
type Crop struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID            uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null;index"`
	Name                string                `gorm:"column:name;type:text;not null"`
	Variety             *string               `gorm:"column:variety;type:text"`
	Quantity            int                   `gorm:"column:quantity;not null;check:chk_crops_quantity,quantity >= 0"`
	Unit                enums.Unit            `gorm:"column:unit;type:text;not null"`
	PricePerUnit        decimal.Decimal       `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	Status              enums.CropStatus      `gorm:"column:status;type:text;not null;index"`
	PlantingDate        time.Time             `gorm:"column:planting_date;type:date;not null"`
	ExpectedHarvestDate time.Time             `gorm:"column:expected_harvest_date;type:date;not null"`
	HarvestDate         *time.Time            `gorm:"column:harvest_date;type:date"`
	PlantingSeason      *enums.PlantingSeason `gorm:"column:planting_season;type:text"`
	Description         *string               `gorm:"column:description;type:text"`
	ImageURL            *string               `gorm:"column:image_url;type:text"`
	ThumbnailURL        *string               `gorm:"column:thumbnail_url;type:text"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Crop) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
