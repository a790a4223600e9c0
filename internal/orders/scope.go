package orders

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Scope selects the orders an actor participates in: a farmer sees orders
// naming them as farmer, a retailer the orders they placed, a distributor
// the orders assigned to them.
type Scope struct {
	Role   enums.UserRole
	UserID uuid.UUID
}

func ScopeFor(actor auth.Actor) Scope {
	return Scope{Role: actor.Role, UserID: actor.UserID}
}

func (s Scope) column() string {
	switch s.Role {
	case enums.UserRoleFarmer:
		return "farmer_id"
	case enums.UserRoleRetailer:
		return "retailer_id"
	case enums.UserRoleDistributor:
		return "distributor_id"
	}
	return ""
}

// apply restricts query to the scope. An unknown role matches nothing.
func (s Scope) apply(query *gorm.DB, table string) *gorm.DB {
	col := s.column()
	if col == "" {
		return query.Where("1 = 0")
	}
	if table != "" {
		col = table + "." + col
	}
	return query.Where(col+" = ?", s.UserID)
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status       *enums.OrderStatus
	TopLevelOnly bool
	// Unassigned lists pending top-level orders no distributor has claimed.
	// It ignores the scope and is only honoured for distributors.
	Unassigned bool
}
