package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	"github.com/harvestlink/harvestlink-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) UpdateTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"total_amount": total, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindChildren returns the per-farmer orders of a parent in creation order.
func (r *repository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("parent_order_id = ?", parentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var rows []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindCanonicalDelivery returns the oldest delivery of an order.
func (r *repository) FindCanonicalDelivery(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// UpdateStatus moves an order from one status to another. It reports false
// when the order was no longer in from.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, completedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) UpdateChildrenStatus(ctx context.Context, parentID uuid.UUID, to enums.OrderStatus, completedAt *time.Time) (int64, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("parent_order_id = ?", parentID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, to enums.DeliveryStatus, completedAt *time.Time) error {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", deliveryID).
		Updates(updates).Error
}

// AssignDistributor sets the distributor of an unassigned pending order and
// of its children.
func (r *repository) AssignDistributor(ctx context.Context, orderID, distributorID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND distributor_id IS NULL AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{"distributor_id": distributorID, "updated_at": now})
	if res.Error != nil || res.RowsAffected == 0 {
		return false, res.Error
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("parent_order_id = ?", orderID).
		Updates(map[string]any{"distributor_id": distributorID, "updated_at": now}).Error
	return err == nil, err
}

func (r *repository) List(ctx context.Context, scope Scope, filter ListFilter, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Unassigned && scope.Role == enums.UserRoleDistributor {
		query = query.Where("distributor_id IS NULL AND parent_order_id IS NULL AND status = ?", enums.OrderStatusPending)
	} else {
		query = scope.apply(query, "")
		if filter.TopLevelOnly {
			query = query.Where("parent_order_id IS NULL")
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
	}
	var rows []models.Order
	err = pagination.ApplyDesc(query, cursor, "", params.Limit).Find(&rows).Error
	return rows, err
}

// ListUpdatedSince returns the scope's orders positioned after the cursor,
// ordered by (updated_at, id).
func (r *repository) ListUpdatedSince(ctx context.Context, scope Scope, after UpdateCursor, limit int) ([]models.Order, error) {
	query := scope.apply(r.db.WithContext(ctx).Model(&models.Order{}), "")
	if after.ID == uuid.Nil {
		query = query.Where("updated_at > ?", after.UpdatedAt)
	} else {
		query = query.Where("(updated_at > ? OR (updated_at = ? AND id > ?))", after.UpdatedAt, after.UpdatedAt, after.ID)
	}
	query = query.Order("updated_at ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Order
	err := query.Find(&rows).Error
	return rows, err
}

// CountByStatus groups the scope's top-level orders by status. Farmers only
// hold child or direct orders, so their counts include children.
func (r *repository) CountByStatus(ctx context.Context, scope Scope) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus
		Count  int64
	}
	query := scope.apply(r.db.WithContext(ctx).Model(&models.Order{}), "")
	if scope.Role != enums.UserRoleFarmer {
		query = query.Where("parent_order_id IS NULL")
	}
	err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// SumCompleted totals completed order amounts in the scope, counting each
// purchase once.
func (r *repository) SumCompleted(ctx context.Context, scope Scope) (decimal.Decimal, error) {
	query := scope.apply(r.db.WithContext(ctx).Model(&models.Order{}), "").
		Where("status = ?", enums.OrderStatusCompleted)
	if scope.Role != enums.UserRoleFarmer {
		query = query.Where("parent_order_id IS NULL")
	}
	var row struct {
		Total decimal.NullDecimal
	}
	if err := query.Select("SUM(total_amount) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

func (r *repository) CountUnassignedPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("distributor_id IS NULL AND parent_order_id IS NULL AND status = ?", enums.OrderStatusPending).
		Count(&count).Error
	return count, err
}

func (r *repository) Recent(ctx context.Context, scope Scope, limit int) ([]models.Order, error) {
	query := scope.apply(r.db.WithContext(ctx).Model(&models.Order{}), "")
	if scope.Role != enums.UserRoleFarmer {
		query = query.Where("parent_order_id IS NULL")
	}
	var rows []models.Order
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
