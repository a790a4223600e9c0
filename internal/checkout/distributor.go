package checkout

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

// DistributorSelector picks the distributor that fulfills a checkout.
type DistributorSelector interface {
	SelectDistributor(ctx context.Context, tx *gorm.DB) (*models.User, error)
}

// FirstDistributor assigns every checkout to the oldest distributor account.
type FirstDistributor struct {
	Repo Repository
}

func (f FirstDistributor) SelectDistributor(ctx context.Context, tx *gorm.DB) (*models.User, error) {
	user, err := f.Repo.WithTx(tx).FirstUserByRole(ctx, enums.UserRoleDistributor)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no distributor is available to fulfill the order")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "select distributor")
	}
	return user, nil
}
