package crops

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Repository persists crops.
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

func (r *Repository) Create(ctx context.Context, crop *models.Crop) error {
	return r.db.WithContext(ctx).Create(crop).Error
}

func (r *Repository) Save(ctx context.Context, crop *models.Crop) error {
	return r.db.WithContext(ctx).Save(crop).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Crop{}, "id = ?", id).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Crop, error) {
	var crop models.Crop
	if err := r.db.WithContext(ctx).First(&crop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &crop, nil
}

// ListByFarmer returns a farmer's crops, newest first.
func (r *Repository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, status *enums.CropStatus) ([]models.Crop, error) {
	query := r.db.WithContext(ctx).Where("farmer_id = ?", farmerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Crop
	err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// ListAvailable returns crops buyers can order from.
func (r *Repository) ListAvailable(ctx context.Context) ([]models.Crop, error) {
	var rows []models.Crop
	err := r.db.WithContext(ctx).
		Where("status = ? AND quantity > 0", enums.CropStatusReadyForHarvest).
		Order("expected_harvest_date ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// UpdateStatus moves a crop from one status to another, returning false when
// the crop was no longer in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.CropStatus, harvestDate *time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	if harvestDate != nil {
		updates["harvest_date"] = *harvestDate
	}
	res := r.db.WithContext(ctx).
		Model(&models.Crop{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// Decrement takes qty from a ready crop in a single statement. A crop that
// reaches zero becomes sold_out. It returns false when the crop is not ready
// or holds less than qty.
func (r *Repository) Decrement(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Crop{}).
		Where("id = ? AND status = ? AND quantity >= ?", id, enums.CropStatusReadyForHarvest, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"status":     gorm.Expr("CASE WHEN quantity - ? = 0 THEN ? ELSE status END", qty, enums.CropStatusSoldOut),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

// HasOrders reports whether any order line references the crop.
func (r *Repository) HasOrders(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("crop_id = ?", id).Count(&count).Error
	return count > 0, err
}

// CountByStatus groups a farmer's crops by status.
func (r *Repository) CountByStatus(ctx context.Context, farmerID uuid.UUID) (map[enums.CropStatus]int64, error) {
	var rows []struct {
		Status enums.CropStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Crop{}).
		Select("status, COUNT(*) AS count").
		Where("farmer_id = ?", farmerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.CropStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
