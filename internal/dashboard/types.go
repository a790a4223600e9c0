package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/harvestlink/harvestlink-backend/internal/inventory"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// DashboardDTO carries the section for the caller's role.
type DashboardDTO struct {
	Role        enums.UserRole        `json:"role"`
	Farmer      *FarmerDashboard      `json:"farmer,omitempty"`
	Distributor *DistributorDashboard `json:"distributor,omitempty"`
	Retailer    *RetailerDashboard    `json:"retailer,omitempty"`
}

type FarmerDashboard struct {
	CropsByStatus  map[string]int64  `json:"crops_by_status"`
	OrdersByStatus map[string]int64  `json:"orders_by_status"`
	Revenue        decimal.Decimal   `json:"revenue"`
	RecentOrders   []orders.OrderDTO `json:"recent_orders"`
}

type DistributorDashboard struct {
	OrdersByStatus     map[string]int64       `json:"orders_by_status"`
	UnassignedOrders   int64                  `json:"unassigned_orders"`
	InventoryItems     int64                  `json:"inventory_items"`
	LowStockItems      []inventory.ItemDTO    `json:"low_stock_items"`
	PendingRestocks    []inventory.RestockDTO `json:"pending_restocks"`
	DeliveriesByStatus map[string]int64       `json:"deliveries_by_status"`
}

type RetailerDashboard struct {
	OrdersByStatus  map[string]int64  `json:"orders_by_status"`
	TotalSpent      decimal.Decimal   `json:"total_spent"`
	ActiveCartItems int64             `json:"active_cart_items"`
	RecentOrders    []orders.OrderDTO `json:"recent_orders"`
}

// statusCounts lists every known status, zero-filled, keyed by name.
func statusCounts[S ~string](all []S, counts map[S]int64) map[string]int64 {
	out := make(map[string]int64, len(all))
	for _, status := range all {
		out[string(status)] = counts[status]
	}
	return out
}
