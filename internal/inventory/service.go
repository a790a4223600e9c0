package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a distributor's stock records.
type Service interface {
	CreateItem(ctx context.Context, actor auth.Actor, input ItemInput) (*ItemDTO, error)
	UpdateItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID, input ItemUpdateInput) (*ItemDTO, error)
	DeleteItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID) error
	GetItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID) (*ItemDTO, error)
	ListItems(ctx context.Context, actor auth.Actor) ([]ItemDTO, error)
	ListLowStock(ctx context.Context, actor auth.Actor) ([]ItemDTO, error)
	AdjustStock(ctx context.Context, actor auth.Actor, itemID uuid.UUID, delta int) (*ItemDTO, error)
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("inventory repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func requireDistributor(actor auth.Actor) error {
	if !actor.Is(enums.UserRoleDistributor) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "distributor role required")
	}
	return nil
}

func (s *service) CreateItem(ctx context.Context, actor auth.Actor, input ItemInput) (*ItemDTO, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	unit, err := enums.ParseUnit(input.Unit)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.Quantity < 0 || input.ReorderLevel < 0 || input.ReorderQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities must not be negative")
	}

	item := &models.InventoryItem{
		DistributorID:   actor.UserID,
		Name:            name,
		SKU:             strings.TrimSpace(input.SKU),
		Unit:            unit,
		Quantity:        input.Quantity,
		ReorderLevel:    input.ReorderLevel,
		ReorderQuantity: input.ReorderQuantity,
		Location:        input.Location,
		ImageURL:        input.ImageURL,
		ThumbnailURL:    input.ThumbnailURL,
	}
	var created ItemDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.SupplierID != nil {
			if err := checkSupplier(ctx, repo, actor, *input.SupplierID); err != nil {
				return err
			}
			item.SupplierID = input.SupplierID
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create inventory item")
		}
		created = ItemFromModel(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *service) UpdateItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID, input ItemUpdateInput) (*ItemDTO, error) {
	var updated ItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := loadItem(ctx, repo, actor, itemID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
			}
			item.Name = name
		}
		if input.SKU != nil {
			item.SKU = strings.TrimSpace(*input.SKU)
		}
		if input.Unit != nil {
			unit, err := enums.ParseUnit(*input.Unit)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
			}
			item.Unit = unit
		}
		if input.ReorderLevel != nil {
			if *input.ReorderLevel < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "reorder_level must not be negative")
			}
			item.ReorderLevel = *input.ReorderLevel
		}
		if input.ReorderQuantity != nil {
			if *input.ReorderQuantity < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "reorder_quantity must not be negative")
			}
			item.ReorderQuantity = *input.ReorderQuantity
		}
		if input.Location != nil {
			item.Location = input.Location
		}
		if input.SupplierID.Valid && !input.SupplierID.Clears() {
			if err := checkSupplier(ctx, repo, actor, *input.SupplierID.Value); err != nil {
				return err
			}
		}
		input.SupplierID.Apply(&item.SupplierID)
		if input.ImageURL != nil {
			item.ImageURL = input.ImageURL
			item.ThumbnailURL = input.ThumbnailURL
		}
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update inventory item")
		}
		updated = ItemFromModel(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *service) DeleteItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadItem(ctx, repo, actor, itemID); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("inventory_item_id = ?", itemID).Delete(&models.RestockOrder{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete restock orders")
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete inventory item")
		}
		return nil
	})
}

func (s *service) GetItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID) (*ItemDTO, error) {
	item, err := loadItem(ctx, s.repo, actor, itemID)
	if err != nil {
		return nil, err
	}
	dto := ItemFromModel(item)
	return &dto, nil
}

func (s *service) ListItems(ctx context.Context, actor auth.Actor) ([]ItemDTO, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListItems(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory")
	}
	return itemsFromModels(rows), nil
}

func (s *service) ListLowStock(ctx context.Context, actor auth.Actor) ([]ItemDTO, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLowStock(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock")
	}
	return itemsFromModels(rows), nil
}

func (s *service) AdjustStock(ctx context.Context, actor auth.Actor, itemID uuid.UUID, delta int) (*ItemDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	var updated ItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadItem(ctx, repo, actor, itemID); err != nil {
			return err
		}
		ok, err := repo.AdjustQuantity(ctx, itemID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock cannot go below zero").
				WithDetails(map[string]any{"inventory_item_id": itemID})
		}
		item, err := repo.FindItem(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload inventory item")
		}
		updated = ItemFromModel(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func loadItem(ctx context.Context, repo *Repository, actor auth.Actor, itemID uuid.UUID) (*models.InventoryItem, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, mapNotFound(err, "inventory item not found")
	}
	if item.DistributorID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "inventory item belongs to another distributor")
	}
	return item, nil
}

func checkSupplier(ctx context.Context, repo *Repository, actor auth.Actor, supplierID uuid.UUID) error {
	supplier, err := repo.FindSupplier(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "supplier_id does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load supplier")
	}
	if supplier.DistributorID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier_id does not exist")
	}
	return nil
}

func mapNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
