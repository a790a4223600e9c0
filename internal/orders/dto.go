package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// TransitionInput is the body of a status change request.
type TransitionInput struct {
	Status enums.OrderStatus `json:"status" form:"status" validate:"required"`
}

// PlaceCropOrderInput orders a quantity of a ready crop.
type PlaceCropOrderInput struct {
	Quantity int     `json:"quantity" form:"quantity" validate:"required,gt=0"`
	Notes    *string `json:"notes,omitempty" form:"notes" validate:"omitempty,max=500"`
}

// UpdateCursor is a position in the order change feed. A cascade stamps the
// parent and its children with one updated_at, so ID orders rows that tie.
// A zero ID resumes strictly after UpdatedAt.
type UpdateCursor struct {
	UpdatedAt time.Time
	ID        uuid.UUID
}

// CursorOf returns the feed position just past o.
func CursorOf(o OrderDTO) UpdateCursor {
	return UpdateCursor{UpdatedAt: o.UpdatedAt, ID: o.ID}
}

type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	FarmerID        *uuid.UUID        `json:"farmer_id,omitempty"`
	RetailerID      *uuid.UUID        `json:"retailer_id,omitempty"`
	DistributorID   *uuid.UUID        `json:"distributor_id,omitempty"`
	ParentOrderID   *uuid.UUID        `json:"parent_order_id,omitempty"`
	Status          enums.OrderStatus `json:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	Notes           *string           `json:"notes,omitempty"`
	DeliveryAddress *string           `json:"delivery_address,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func FromModel(o models.Order) OrderDTO {
	return OrderDTO{
		ID:              o.ID,
		FarmerID:        o.FarmerID,
		RetailerID:      o.RetailerID,
		DistributorID:   o.DistributorID,
		ParentOrderID:   o.ParentOrderID,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount,
		Notes:           o.Notes,
		DeliveryAddress: o.DeliveryAddress,
		CompletedAt:     o.CompletedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	CropID       *uuid.UUID      `json:"crop_id,omitempty"`
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

func itemsFromModels(rows []models.OrderItem) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, OrderItemDTO{
			ID:           row.ID,
			CropID:       row.CropID,
			ProductID:    row.ProductID,
			Name:         row.Name,
			Quantity:     row.Quantity,
			PricePerUnit: row.PricePerUnit,
			Subtotal:     row.Subtotal,
		})
	}
	return out
}

type DeliveryDTO struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"order_id"`
	Status          enums.DeliveryStatus `json:"status"`
	ScheduledDate   time.Time            `json:"scheduled_date"`
	DeliveryAddress string               `json:"delivery_address"`
	TrackingNumber  string               `json:"tracking_number"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func DeliveryFromModel(d models.Delivery) DeliveryDTO {
	return DeliveryDTO{
		ID:              d.ID,
		OrderID:         d.OrderID,
		Status:          d.Status,
		ScheduledDate:   d.ScheduledDate,
		DeliveryAddress: d.DeliveryAddress,
		TrackingNumber:  d.TrackingNumber,
		CompletedAt:     d.CompletedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// OrderDetailDTO is an order with its lines, per-farmer children and
// canonical delivery.
type OrderDetailDTO struct {
	OrderDTO
	Items    []OrderItemDTO `json:"items"`
	Children []OrderDTO     `json:"children,omitempty"`
	Delivery *DeliveryDTO   `json:"delivery,omitempty"`
}

// TrackingDTO is the delivery view of an order.
type TrackingDTO struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderStatus enums.OrderStatus `json:"order_status"`
	Delivery    DeliveryDTO       `json:"delivery"`
}
