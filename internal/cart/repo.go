package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Line is a cart item joined with its product.
type Line struct {
	ProductID     uuid.UUID
	FarmerID      uuid.UUID
	Name          string
	Unit          enums.Unit
	Quantity      int
	UnitPrice     decimal.Decimal
	StockQuantity int
}

// Repository exposes persistence operations for carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindActive loads the retailer's active cart.
func (r *Repository) FindActive(ctx context.Context, retailerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND status = ?", retailerID, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	return r.db.WithContext(ctx).Create(cart).Error
}

// Touch bumps updated_at so stale-cart cleanup measures from the last edit.
func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now().UTC()).Error
}

// Lines returns the cart's items with product data, in insertion order.
func (r *Repository) Lines(ctx context.Context, cartID uuid.UUID) ([]Line, error) {
	var rows []Line
	err := r.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select(`ci.product_id AS product_id, p.farmer_id AS farmer_id, p.name AS name, p.unit AS unit,
			ci.quantity AS quantity, ci.unit_price AS unit_price, p.stock_quantity AS stock_quantity`).
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.created_at ASC").
		Order("ci.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *Repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// MarkConverted closes an active cart after checkout.
func (r *Repository) MarkConverted(ctx context.Context, cartID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected == 1, res.Error
}

// AbandonStale marks active carts untouched since cutoff as abandoned.
func (r *Repository) AbandonStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("status = ? AND updated_at < ?", enums.CartStatusActive, cutoff).
		Updates(map[string]any{
			"status":     enums.CartStatusAbandoned,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CountActiveItems sums the quantities in the retailer's active cart.
func (r *Repository) CountActiveItems(ctx context.Context, retailerID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select("COALESCE(SUM(ci.quantity), 0)").
		Joins("JOIN carts c ON c.id = ci.cart_id").
		Where("c.retailer_id = ? AND c.status = ?", retailerID, enums.CartStatusActive).
		Scan(&total).Error
	return total, err
}
