package product

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

// Service exposes farmer product management and retailer browsing.
type Service interface {
	CreateProduct(ctx context.Context, actor auth.Actor, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input ProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, actor auth.Actor, filters ListFilters) ([]ProductDTO, error)
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("product repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateProduct(ctx context.Context, actor auth.Actor, input ProductInput) (*ProductDTO, error) {
	if !actor.Is(enums.UserRoleFarmer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can create products")
	}
	product := &models.Product{FarmerID: actor.UserID}
	var created ProductDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := applyInput(ctx, tx, actor, product, input); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
		}
		created = FromModel(product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *service) UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input ProductInput) (*ProductDTO, error) {
	var updated ProductDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := loadOwned(ctx, repo, actor, productID)
		if err != nil {
			return err
		}
		if err := applyInput(ctx, tx, actor, product, input); err != nil {
			return err
		}
		if err := repo.Save(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
		}
		updated = FromModel(product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *service) DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadOwned(ctx, repo, actor, productID); err != nil {
			return err
		}
		ordered, err := repo.HasOrders(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product orders")
		}
		if ordered {
			return pkgerrors.New(pkgerrors.CodeConflict, "product has orders and cannot be deleted")
		}
		if err := tx.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.CartItem{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove product from carts")
		}
		if err := repo.Delete(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
		}
		return nil
	})
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	dto := FromModel(product)
	return &dto, nil
}

// ListProducts shows a farmer their own catalog and everyone else the
// products that still have stock.
func (s *service) ListProducts(ctx context.Context, actor auth.Actor, filters ListFilters) ([]ProductDTO, error) {
	var (
		rows []models.Product
		err  error
	)
	if actor.Is(enums.UserRoleFarmer) {
		rows, err = s.repo.ListByFarmer(ctx, actor.UserID)
	} else {
		rows, err = s.repo.ListInStock(ctx, filters)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return fromModels(rows), nil
}

func loadOwned(ctx context.Context, repo *Repository, actor auth.Actor, productID uuid.UUID) (*models.Product, error) {
	if !actor.Is(enums.UserRoleFarmer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can manage products")
	}
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	if product.FarmerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another farmer")
	}
	return product, nil
}

func applyInput(ctx context.Context, tx *gorm.DB, actor auth.Actor, product *models.Product, input ProductInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	unit, err := enums.ParseUnit(input.Unit)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if !input.PricePerUnit.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_per_unit must be greater than zero")
	}
	if input.StockQuantity < 0 || input.ReorderLevel < 0 || input.ReorderQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantities must not be negative")
	}
	if input.CropID != nil {
		var count int64
		err := tx.WithContext(ctx).Model(&models.Crop{}).
			Where("id = ? AND farmer_id = ?", *input.CropID, actor.UserID).
			Count(&count).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check crop")
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "crop_id must reference one of your crops")
		}
	}

	product.Name = name
	product.Category = strings.ToLower(strings.TrimSpace(input.Category))
	product.Unit = unit
	product.PricePerUnit = input.PricePerUnit.Round(2)
	product.StockQuantity = input.StockQuantity
	product.ReorderLevel = input.ReorderLevel
	product.ReorderQuantity = input.ReorderQuantity
	product.CropID = input.CropID
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
		product.ThumbnailURL = input.ThumbnailURL
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
}
