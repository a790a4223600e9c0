package orders

import "github.com/harvestlink/harvestlink-backend/pkg/enums"

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// deliveryStatusFor derives the canonical delivery status that follows an
// order status. ok is false when the delivery is left untouched.
func deliveryStatusFor(status enums.OrderStatus) (enums.DeliveryStatus, bool) {
	switch status {
	case enums.OrderStatusProcessing:
		return enums.DeliveryStatusScheduled, true
	case enums.OrderStatusCompleted:
		return enums.DeliveryStatusCompleted, true
	case enums.OrderStatusCancelled:
		return enums.DeliveryStatusCancelled, true
	}
	return "", false
}
