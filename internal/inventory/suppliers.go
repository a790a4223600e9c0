package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

// SupplierService manages a distributor's supplier directory.
type SupplierService interface {
	Create(ctx context.Context, actor auth.Actor, input SupplierInput) (*SupplierDTO, error)
	Update(ctx context.Context, actor auth.Actor, supplierID uuid.UUID, input SupplierInput) (*SupplierDTO, error)
	Delete(ctx context.Context, actor auth.Actor, supplierID uuid.UUID) error
	Get(ctx context.Context, actor auth.Actor, supplierID uuid.UUID) (*SupplierDTO, error)
	List(ctx context.Context, actor auth.Actor) ([]SupplierDTO, error)
}

type supplierService struct {
	repo *Repository
	tx   txRunner
}

func NewSupplierService(repo *Repository, tx txRunner) (SupplierService, error) {
	if repo == nil {
		return nil, errors.New("inventory repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &supplierService{repo: repo, tx: tx}, nil
}

func (s *supplierService) Create(ctx context.Context, actor auth.Actor, input SupplierInput) (*SupplierDTO, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	supplier := &models.Supplier{DistributorID: actor.UserID}
	if err := applySupplier(supplier, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create supplier")
	}
	dto := SupplierFromModel(supplier)
	return &dto, nil
}

func (s *supplierService) Update(ctx context.Context, actor auth.Actor, supplierID uuid.UUID, input SupplierInput) (*SupplierDTO, error) {
	var updated SupplierDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		supplier, err := loadSupplier(ctx, repo, actor, supplierID)
		if err != nil {
			return err
		}
		if err := applySupplier(supplier, input); err != nil {
			return err
		}
		if err := repo.SaveSupplier(ctx, supplier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update supplier")
		}
		updated = SupplierFromModel(supplier)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *supplierService) Delete(ctx context.Context, actor auth.Actor, supplierID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadSupplier(ctx, repo, actor, supplierID); err != nil {
			return err
		}
		if err := repo.DeleteSupplier(ctx, supplierID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete supplier")
		}
		return nil
	})
}

func (s *supplierService) Get(ctx context.Context, actor auth.Actor, supplierID uuid.UUID) (*SupplierDTO, error) {
	supplier, err := loadSupplier(ctx, s.repo, actor, supplierID)
	if err != nil {
		return nil, err
	}
	dto := SupplierFromModel(supplier)
	return &dto, nil
}

func (s *supplierService) List(ctx context.Context, actor auth.Actor) ([]SupplierDTO, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSuppliers(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list suppliers")
	}
	out := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		out = append(out, SupplierFromModel(&rows[i]))
	}
	return out, nil
}

func loadSupplier(ctx context.Context, repo *Repository, actor auth.Actor, supplierID uuid.UUID) (*models.Supplier, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	supplier, err := repo.FindSupplier(ctx, supplierID)
	if err != nil {
		return nil, mapNotFound(err, "supplier not found")
	}
	if supplier.DistributorID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return supplier, nil
}

func applySupplier(supplier *models.Supplier, input SupplierInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	supplier.Name = name
	supplier.ContactEmail = trimmed(input.ContactEmail)
	supplier.Phone = trimmed(input.Phone)
	supplier.Address = trimmed(input.Address)
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
