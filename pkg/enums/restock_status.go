package enums

import "fmt"

// RestockStatus tracks a distributor's replenishment request.
type RestockStatus string

const (
	RestockStatusPending   RestockStatus = "pending"
	RestockStatusReceived  RestockStatus = "received"
	RestockStatusCancelled RestockStatus = "cancelled"
)

var validRestockStatuses = []RestockStatus{
	RestockStatusPending,
	RestockStatusReceived,
	RestockStatusCancelled,
}

func (r RestockStatus) String() string {
	return string(r)
}

func (r RestockStatus) IsValid() bool {
	for _, candidate := range validRestockStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRestockStatus converts raw input into a RestockStatus.
func ParseRestockStatus(value string) (RestockStatus, error) {
	for _, candidate := range validRestockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid restock status %q", value)
}
