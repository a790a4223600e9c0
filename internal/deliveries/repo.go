package deliveries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Repository exposes delivery persistence.
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

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&delivery, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus moves a delivery out of from. It reports false when the
// delivery was no longer in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

// CountByStatus groups the deliveries of orders assigned to a distributor.
func (r *Repository) CountByStatus(ctx context.Context, distributorID uuid.UUID) (map[enums.DeliveryStatus]int64, error) {
	var rows []struct {
		Status enums.DeliveryStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Table("deliveries AS d").
		Select("d.status AS status, COUNT(*) AS count").
		Joins("JOIN orders o ON o.id = d.order_id").
		Where("o.distributor_id = ?", distributorID).
		Group("d.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
