package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/internal/users"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Repository exposes the user lookups checkout needs: the buying retailer
// and distributor candidates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FirstUserByRole(ctx context.Context, role enums.UserRole) (*models.User, error)
}

type repository struct {
	users *users.Repository
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{users: users.NewRepository(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{users: r.users.WithTx(tx)}
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.users.FindByID(ctx, id)
}

func (r *repository) FirstUserByRole(ctx context.Context, role enums.UserRole) (*models.User, error) {
	return r.users.FirstByRole(ctx, role)
}
