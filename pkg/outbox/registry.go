package outbox

import (
	"fmt"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// EventDescriptor links an event type to its aggregate and topic.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry registers every domain event against the domain topic.
func NewEventRegistry(domainTopic string) (*EventRegistry, error) {
	if domainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for eventType, aggregate := range map[enums.OutboxEventType]enums.OutboxAggregateType{
		enums.EventCheckoutCompleted:     enums.AggregateOrder,
		enums.EventOrderPlaced:           enums.AggregateOrder,
		enums.EventOrderStatusChanged:    enums.AggregateOrder,
		enums.EventOrderClaimed:          enums.AggregateOrder,
		enums.EventCropStatusChanged:     enums.AggregateCrop,
		enums.EventDeliveryStatusChanged: enums.AggregateDelivery,
		enums.EventRestockRequested:      enums.AggregateRestockOrder,
		enums.EventRestockReceived:       enums.AggregateRestockOrder,
	} {
		reg.entries[eventType] = EventDescriptor{
			EventType:     eventType,
			AggregateType: aggregate,
			Topic:         domainTopic,
		}
	}
	return reg, nil
}

// Resolve returns the descriptor for an event row, rejecting unknown or
// mismatched rows as non-retryable.
func (r *EventRegistry) Resolve(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) (EventDescriptor, error) {
	desc, ok := r.entries[eventType]
	if !ok {
		return EventDescriptor{}, NonRetryableError{Err: fmt.Errorf("unregistered event type %q", eventType)}
	}
	if desc.AggregateType != aggregate {
		return EventDescriptor{}, NonRetryableError{Err: fmt.Errorf("event %s expects aggregate %s, got %s", eventType, desc.AggregateType, aggregate)}
	}
	return desc, nil
}
