package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	"github.com/harvestlink/harvestlink-backend/pkg/types"
)

// ItemInput creates an inventory item.
type ItemInput struct {
	Name            string     `json:"name" form:"name" validate:"required,min=2,max=100"`
	SKU             string     `json:"sku" form:"sku" validate:"omitempty,max=64"`
	Unit            string     `json:"unit" form:"unit" validate:"required,oneof=kg g ton piece"`
	Quantity        int        `json:"quantity" form:"quantity" validate:"gte=0"`
	ReorderLevel    int        `json:"reorder_level" form:"reorder_level" validate:"gte=0"`
	ReorderQuantity int        `json:"reorder_quantity" form:"reorder_quantity" validate:"gte=0"`
	Location        *string    `json:"location,omitempty" form:"location" validate:"omitempty,max=200"`
	SupplierID      *uuid.UUID `json:"supplier_id,omitempty" form:"supplier_id"`

	ImageURL     *string `json:"-" form:"-"`
	ThumbnailURL *string `json:"-" form:"-"`
}

// ItemUpdateInput patches an inventory item. Absent fields are kept; an
// explicit null supplier_id detaches the supplier.
type ItemUpdateInput struct {
	Name            *string            `json:"name,omitempty" form:"name" validate:"omitempty,min=2,max=100"`
	SKU             *string            `json:"sku,omitempty" form:"sku" validate:"omitempty,max=64"`
	Unit            *string            `json:"unit,omitempty" form:"unit" validate:"omitempty,oneof=kg g ton piece"`
	ReorderLevel    *int               `json:"reorder_level,omitempty" form:"reorder_level" validate:"omitempty,gte=0"`
	ReorderQuantity *int               `json:"reorder_quantity,omitempty" form:"reorder_quantity" validate:"omitempty,gte=0"`
	Location        *string            `json:"location,omitempty" form:"location" validate:"omitempty,max=200"`
	SupplierID      types.NullableUUID `json:"supplier_id" form:"supplier_id"`

	ImageURL     *string `json:"-" form:"-"`
	ThumbnailURL *string `json:"-" form:"-"`
}

// AdjustInput moves stock by a signed delta.
type AdjustInput struct {
	Delta int `json:"delta" form:"delta" validate:"required"`
}

// ItemDTO is the API shape of an inventory item.
type ItemDTO struct {
	ID              uuid.UUID  `json:"id"`
	DistributorID   uuid.UUID  `json:"distributor_id"`
	SupplierID      *uuid.UUID `json:"supplier_id,omitempty"`
	Name            string     `json:"name"`
	SKU             string     `json:"sku"`
	Unit            enums.Unit `json:"unit"`
	Quantity        int        `json:"quantity"`
	ReorderLevel    int        `json:"reorder_level"`
	ReorderQuantity int        `json:"reorder_quantity"`
	LowStock        bool       `json:"low_stock"`
	Location        *string    `json:"location,omitempty"`
	ImageURL        *string    `json:"image_url,omitempty"`
	ThumbnailURL    *string    `json:"thumbnail_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func ItemFromModel(i *models.InventoryItem) ItemDTO {
	return ItemDTO{
		ID:              i.ID,
		DistributorID:   i.DistributorID,
		SupplierID:      i.SupplierID,
		Name:            i.Name,
		SKU:             i.SKU,
		Unit:            i.Unit,
		Quantity:        i.Quantity,
		ReorderLevel:    i.ReorderLevel,
		ReorderQuantity: i.ReorderQuantity,
		LowStock:        i.IsLowStock(),
		Location:        i.Location,
		ImageURL:        i.ImageURL,
		ThumbnailURL:    i.ThumbnailURL,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

func itemsFromModels(rows []models.InventoryItem) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ItemFromModel(&rows[i]))
	}
	return out
}

// SupplierInput creates or replaces a supplier entry.
type SupplierInput struct {
	Name         string  `json:"name" form:"name" validate:"required,min=2,max=100"`
	ContactEmail *string `json:"contact_email,omitempty" form:"contact_email" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty" form:"phone" validate:"omitempty,max=32"`
	Address      *string `json:"address,omitempty" form:"address" validate:"omitempty,max=300"`
}

type SupplierDTO struct {
	ID            uuid.UUID `json:"id"`
	DistributorID uuid.UUID `json:"distributor_id"`
	Name          string    `json:"name"`
	ContactEmail  *string   `json:"contact_email,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Address       *string   `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func SupplierFromModel(s *models.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:            s.ID,
		DistributorID: s.DistributorID,
		Name:          s.Name,
		ContactEmail:  s.ContactEmail,
		Phone:         s.Phone,
		Address:       s.Address,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// RestockDTO is the API shape of a restock order.
type RestockDTO struct {
	ID              uuid.UUID           `json:"id"`
	DistributorID   uuid.UUID           `json:"distributor_id"`
	InventoryItemID uuid.UUID           `json:"inventory_item_id"`
	SupplierID      *uuid.UUID          `json:"supplier_id,omitempty"`
	Quantity        int                 `json:"quantity"`
	Status          enums.RestockStatus `json:"status"`
	RequestedAt     time.Time           `json:"requested_at"`
	ReceivedAt      *time.Time          `json:"received_at,omitempty"`
}

func RestockFromModel(r *models.RestockOrder) RestockDTO {
	return RestockDTO{
		ID:              r.ID,
		DistributorID:   r.DistributorID,
		InventoryItemID: r.InventoryItemID,
		SupplierID:      r.SupplierID,
		Quantity:        r.Quantity,
		Status:          r.Status,
		RequestedAt:     r.RequestedAt,
		ReceivedAt:      r.ReceivedAt,
	}
}
