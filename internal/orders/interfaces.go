package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	"github.com/harvestlink/harvestlink-backend/pkg/pagination"
)

// Repository defines persistence operations for orders, their items and
// deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	UpdateTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]models.Order, error)
	FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindCanonicalDelivery(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, completedAt *time.Time) (bool, error)
	UpdateChildrenStatus(ctx context.Context, parentID uuid.UUID, to enums.OrderStatus, completedAt *time.Time) (int64, error)
	UpdateDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, to enums.DeliveryStatus, completedAt *time.Time) error
	AssignDistributor(ctx context.Context, orderID, distributorID uuid.UUID) (bool, error)
	List(ctx context.Context, scope Scope, filter ListFilter, params pagination.Params) ([]models.Order, error)
	ListUpdatedSince(ctx context.Context, scope Scope, after UpdateCursor, limit int) ([]models.Order, error)
	CountByStatus(ctx context.Context, scope Scope) (map[enums.OrderStatus]int64, error)
	SumCompleted(ctx context.Context, scope Scope) (decimal.Decimal, error)
	CountUnassignedPending(ctx context.Context) (int64, error)
	Recent(ctx context.Context, scope Scope, limit int) ([]models.Order, error)
}

// CropStock is the crop surface needed to order directly from a listing.
type CropStock interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Crop, error)
	Decrement(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
