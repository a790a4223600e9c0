package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, status := range AllOrderStatuses() {
		parsed, err := ParseOrderStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}
	_, err := ParseOrderStatus("shipped")
	assert.Error(t, err)
}

func TestOrderStatusIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusProcessing.IsTerminal())
}

func TestAllStatusesReturnsCopy(t *testing.T) {
	statuses := AllCropStatuses()
	statuses[0] = "mutated"
	assert.Equal(t, CropStatusGrowing, AllCropStatuses()[0])
}

func TestParseUnitNormalizes(t *testing.T) {
	unit, err := ParseUnit(" KG ")
	require.NoError(t, err)
	assert.Equal(t, UnitKilogram, unit)

	_, err = ParseUnit("bushel")
	assert.Error(t, err)
}

func TestParsePlantingSeason(t *testing.T) {
	season, err := ParsePlantingSeason("Fall")
	require.NoError(t, err)
	assert.Equal(t, SeasonFall, season)
	assert.False(t, PlantingSeason("monsoon").IsValid())
}

func TestParseDeliveryStatus(t *testing.T) {
	for _, status := range AllDeliveryStatuses() {
		parsed, err := ParseDeliveryStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}
	_, err := ParseDeliveryStatus("lost")
	assert.Error(t, err)
}

func TestParseUserRole(t *testing.T) {
	for _, raw := range []string{"farmer", "distributor", "retailer"} {
		role, err := ParseUserRole(raw)
		require.NoError(t, err)
		assert.True(t, role.IsValid())
	}
	_, err := ParseUserRole("admin")
	assert.Error(t, err)
}

func TestOutboxTypes(t *testing.T) {
	_, err := ParseOutboxEventType(string(EventOrderClaimed))
	assert.NoError(t, err)
	_, err = ParseOutboxEventType("order_refunded")
	assert.Error(t, err)

	_, err = ParseOutboxAggregateType(string(AggregateDelivery))
	assert.NoError(t, err)
	assert.False(t, OutboxAggregateType("store").IsValid())
}
