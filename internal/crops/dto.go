package crops

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	"github.com/harvestlink/harvestlink-backend/pkg/types"
)

// CropInput is the create/update payload for a crop listing.
type CropInput struct {
	Name                string          `json:"name" form:"name" validate:"required,min=2,max=100"`
	Variety             *string         `json:"variety,omitempty" form:"variety" validate:"omitempty,max=100"`
	Quantity            int             `json:"quantity" form:"quantity" validate:"gte=0"`
	Unit                string          `json:"unit" form:"unit" validate:"required,oneof=kg g ton piece"`
	PricePerUnit        decimal.Decimal `json:"price_per_unit" form:"price_per_unit"`
	PlantingDate        types.Date      `json:"planting_date" form:"planting_date"`
	ExpectedHarvestDate types.Date      `json:"expected_harvest_date" form:"expected_harvest_date"`
	PlantingSeason      *string         `json:"planting_season,omitempty" form:"planting_season" validate:"omitempty,oneof=spring summer fall winter"`
	Description         *string         `json:"description,omitempty" form:"description" validate:"omitempty,max=500"`

	ImageURL     *string `json:"-" form:"-"`
	ThumbnailURL *string `json:"-" form:"-"`
}

// StatusInput requests a lifecycle step.
type StatusInput struct {
	Status string `json:"status" form:"status" validate:"required"`
}

// ListFilter narrows crop listings.
type ListFilter struct {
	Status *enums.CropStatus
}

// CropDTO is the API shape of a crop.
type CropDTO struct {
	ID                  uuid.UUID             `json:"id"`
	FarmerID            uuid.UUID             `json:"farmer_id"`
	Name                string                `json:"name"`
	Variety             *string               `json:"variety,omitempty"`
	Quantity            int                   `json:"quantity"`
	Unit                enums.Unit            `json:"unit"`
	PricePerUnit        decimal.Decimal       `json:"price_per_unit"`
	Status              enums.CropStatus      `json:"status"`
	PlantingDate        types.Date            `json:"planting_date"`
	ExpectedHarvestDate types.Date            `json:"expected_harvest_date"`
	HarvestDate         *types.Date           `json:"harvest_date,omitempty"`
	PlantingSeason      *enums.PlantingSeason `json:"planting_season,omitempty"`
	Description         *string               `json:"description,omitempty"`
	ImageURL            *string               `json:"image_url,omitempty"`
	ThumbnailURL        *string               `json:"thumbnail_url,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

func FromModel(c *models.Crop) CropDTO {
	dto := CropDTO{
		ID:                  c.ID,
		FarmerID:            c.FarmerID,
		Name:                c.Name,
		Variety:             c.Variety,
		Quantity:            c.Quantity,
		Unit:                c.Unit,
		PricePerUnit:        c.PricePerUnit,
		Status:              c.Status,
		PlantingDate:        types.Date{Time: c.PlantingDate},
		ExpectedHarvestDate: types.Date{Time: c.ExpectedHarvestDate},
		PlantingSeason:      c.PlantingSeason,
		Description:         c.Description,
		ImageURL:            c.ImageURL,
		ThumbnailURL:        c.ThumbnailURL,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	if c.HarvestDate != nil {
		dto.HarvestDate = &types.Date{Time: *c.HarvestDate}
	}
	return dto
}

func fromModels(rows []models.Crop) []CropDTO {
	out := make([]CropDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
