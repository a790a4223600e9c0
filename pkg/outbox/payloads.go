package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// CheckoutCompletedEvent is emitted once per successful checkout.
type CheckoutCompletedEvent struct {
	OrderID        uuid.UUID       `json:"orderId"`
	RetailerID     uuid.UUID       `json:"retailerId"`
	DistributorID  uuid.UUID       `json:"distributorId"`
	ChildOrderIDs  []uuid.UUID     `json:"childOrderIds"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TrackingNumber string          `json:"trackingNumber"`
}

// OrderPlacedEvent is emitted when a buyer orders directly from a crop.
type OrderPlacedEvent struct {
	OrderID  uuid.UUID `json:"orderId"`
	CropID   uuid.UUID `json:"cropId"`
	FarmerID uuid.UUID `json:"farmerId"`
	Quantity int       `json:"quantity"`
}

// OrderStatusChangedEvent carries a parent transition and its cascade.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID         `json:"orderId"`
	From          enums.OrderStatus `json:"from"`
	To            enums.OrderStatus `json:"to"`
	ChildOrderIDs []uuid.UUID       `json:"childOrderIds,omitempty"`
	DeliveryID    *uuid.UUID        `json:"deliveryId,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

// OrderClaimedEvent records a distributor taking an unassigned order.
type OrderClaimedEvent struct {
	OrderID       uuid.UUID `json:"orderId"`
	DistributorID uuid.UUID `json:"distributorId"`
}

// CropStatusChangedEvent records a crop lifecycle step.
type CropStatusChangedEvent struct {
	CropID   uuid.UUID        `json:"cropId"`
	FarmerID uuid.UUID        `json:"farmerId"`
	From     enums.CropStatus `json:"from"`
	To       enums.CropStatus `json:"to"`
}

// DeliveryStatusChangedEvent records a delivery update made by a distributor.
type DeliveryStatusChangedEvent struct {
	DeliveryID uuid.UUID            `json:"deliveryId"`
	OrderID    uuid.UUID            `json:"orderId"`
	From       enums.DeliveryStatus `json:"from"`
	To         enums.DeliveryStatus `json:"to"`
}

// RestockEvent covers restock requests and receipts.
type RestockEvent struct {
	RestockOrderID  uuid.UUID `json:"restockOrderId"`
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	Quantity        int       `json:"quantity"`
	Automatic       bool      `json:"automatic,omitempty"`
}
