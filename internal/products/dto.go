package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// ProductInput is the create/update payload for a product.
type ProductInput struct {
	Name            string          `json:"name" form:"name" validate:"required,min=2,max=100"`
	Category        string          `json:"category" form:"category" validate:"omitempty,max=50"`
	Unit            string          `json:"unit" form:"unit" validate:"required,oneof=kg g ton piece"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit" form:"price_per_unit"`
	StockQuantity   int             `json:"stock_quantity" form:"stock_quantity" validate:"gte=0"`
	ReorderLevel    int             `json:"reorder_level" form:"reorder_level" validate:"gte=0"`
	ReorderQuantity int             `json:"reorder_quantity" form:"reorder_quantity" validate:"gte=0"`
	CropID          *uuid.UUID      `json:"crop_id,omitempty" form:"crop_id"`

	ImageURL     *string `json:"-" form:"-"`
	ThumbnailURL *string `json:"-" form:"-"`
}

// ListFilters narrow the retailer browse listing.
type ListFilters struct {
	Category *string
	Query    string
	FarmerID *uuid.UUID
}

// ProductDTO is the API shape of a product.
type ProductDTO struct {
	ID              uuid.UUID       `json:"id"`
	FarmerID        uuid.UUID       `json:"farmer_id"`
	CropID          *uuid.UUID      `json:"crop_id,omitempty"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Unit            enums.Unit      `json:"unit"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	StockQuantity   int             `json:"stock_quantity"`
	ReorderLevel    int             `json:"reorder_level"`
	ReorderQuantity int             `json:"reorder_quantity"`
	LowStock        bool            `json:"low_stock"`
	ImageURL        *string         `json:"image_url,omitempty"`
	ThumbnailURL    *string         `json:"thumbnail_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func FromModel(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:              p.ID,
		FarmerID:        p.FarmerID,
		CropID:          p.CropID,
		Name:            p.Name,
		Category:        p.Category,
		Unit:            p.Unit,
		PricePerUnit:    p.PricePerUnit,
		StockQuantity:   p.StockQuantity,
		ReorderLevel:    p.ReorderLevel,
		ReorderQuantity: p.ReorderQuantity,
		LowStock:        p.StockQuantity <= p.ReorderLevel,
		ImageURL:        p.ImageURL,
		ThumbnailURL:    p.ThumbnailURL,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
