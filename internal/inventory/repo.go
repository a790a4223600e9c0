package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Repository persists inventory items, suppliers and restock orders.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id).Error
}

func (r *Repository) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemForUpdate loads an item holding a row lock on postgres.
func (r *Repository) FindItemForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) ListItems(ctx context.Context, distributorID uuid.UUID) ([]models.InventoryItem, error) {
	var rows []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("distributor_id = ?", distributorID).
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListLowStock returns a distributor's items at or below their reorder level.
func (r *Repository) ListLowStock(ctx context.Context, distributorID uuid.UUID) ([]models.InventoryItem, error) {
	var rows []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("distributor_id = ? AND quantity <= reorder_level", distributorID).
		Order("quantity ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListReorderCandidates returns low-stock items across all distributors that
// have a reorder quantity and no pending restock.
func (r *Repository) ListReorderCandidates(ctx context.Context, limit int) ([]models.InventoryItem, error) {
	pending := r.db.Model(&models.RestockOrder{}).
		Select("inventory_item_id").
		Where("status = ?", enums.RestockStatusPending)
	query := r.db.WithContext(ctx).
		Where("quantity <= reorder_level AND reorder_quantity > 0").
		Where("id NOT IN (?)", pending).
		Order("updated_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.InventoryItem
	err := query.Find(&rows).Error
	return rows, err
}

func (r *Repository) CountItems(ctx context.Context, distributorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("distributor_id = ?", distributorID).Count(&count).Error
	return count, err
}

// AdjustQuantity applies delta to an item, refusing to go below zero.
func (r *Repository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *Repository) SaveSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

// DeleteSupplier removes a supplier and detaches it from items and restocks.
func (r *Repository) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Model(&models.InventoryItem{}).Where("supplier_id = ?", id).Update("supplier_id", nil).Error; err != nil {
		return err
	}
	if err := conn.Model(&models.RestockOrder{}).Where("supplier_id = ?", id).Update("supplier_id", nil).Error; err != nil {
		return err
	}
	return conn.Delete(&models.Supplier{}, "id = ?", id).Error
}

func (r *Repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *Repository) ListSuppliers(ctx context.Context, distributorID uuid.UUID) ([]models.Supplier, error) {
	var rows []models.Supplier
	err := r.db.WithContext(ctx).
		Where("distributor_id = ?", distributorID).
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateRestock(ctx context.Context, restock *models.RestockOrder) error {
	return r.db.WithContext(ctx).Create(restock).Error
}

func (r *Repository) FindRestock(ctx context.Context, id uuid.UUID) (*models.RestockOrder, error) {
	var restock models.RestockOrder
	if err := r.db.WithContext(ctx).First(&restock, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &restock, nil
}

func (r *Repository) HasOpenRestock(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RestockOrder{}).
		Where("inventory_item_id = ? AND status = ?", itemID, enums.RestockStatusPending).
		Count(&count).Error
	return count > 0, err
}

// UpdateRestockStatus moves a pending restock to status, returning false when
// it was no longer pending.
func (r *Repository) UpdateRestockStatus(ctx context.Context, id uuid.UUID, status enums.RestockStatus, receivedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	if receivedAt != nil {
		updates["received_at"] = *receivedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.RestockOrder{}).
		Where("id = ? AND status = ?", id, enums.RestockStatusPending).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) ListRestocks(ctx context.Context, distributorID uuid.UUID, status *enums.RestockStatus) ([]models.RestockOrder, error) {
	query := r.db.WithContext(ctx).Where("distributor_id = ?", distributorID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.RestockOrder
	err := query.Order("requested_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}
