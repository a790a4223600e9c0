package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateCrop         OutboxAggregateType = "crop"
	AggregateRestockOrder OutboxAggregateType = "restock_order"
	AggregateDelivery     OutboxAggregateType = "delivery"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCrop,
	AggregateRestockOrder,
	AggregateDelivery,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventCheckoutCompleted     OutboxEventType = "checkout_completed"
	EventOrderPlaced           OutboxEventType = "order_placed"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderClaimed          OutboxEventType = "order_claimed"
	EventCropStatusChanged     OutboxEventType = "crop_status_changed"
	EventDeliveryStatusChanged OutboxEventType = "delivery_status_changed"
	EventRestockRequested      OutboxEventType = "restock_requested"
	EventRestockReceived       OutboxEventType = "restock_received"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCheckoutCompleted,
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventOrderClaimed,
	EventCropStatusChanged,
	EventDeliveryStatusChanged,
	EventRestockRequested,
	EventRestockReceived,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
