package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the retailer's active cart.
type Service interface {
	Get(ctx context.Context, actor auth.Actor) (*CartDTO, error)
	AddItem(ctx context.Context, actor auth.Actor, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, actor auth.Actor, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, actor auth.Actor, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, actor auth.Actor) (*CartDTO, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products func(tx *gorm.DB) ProductLookup
}

// NewService builds a cart service. products returns a product reader bound
// to the given transaction.
func NewService(repo CartRepository, tx txRunner, products func(tx *gorm.DB) ProductLookup) (Service, error) {
	if repo == nil {
		return nil, errors.New("cart repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if products == nil {
		return nil, errors.New("product lookup required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor) (*CartDTO, error) {
	return s.mutate(ctx, actor, nil)
}

func (s *service) AddItem(ctx context.Context, actor auth.Actor, input AddItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	return s.mutate(ctx, actor, func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error {
		product, err := s.loadProduct(ctx, tx, input.ProductID)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, cart.ID, input.ProductID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = &models.CartItem{CartID: cart.ID, ProductID: input.ProductID}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		quantity := item.Quantity + input.Quantity
		if err := checkStock(product, quantity); err != nil {
			return err
		}
		item.Quantity = quantity
		item.UnitPrice = product.PricePerUnit
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart item")
		}
		return nil
	})
}

func (s *service) UpdateItem(ctx context.Context, actor auth.Actor, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	return s.mutate(ctx, actor, func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error {
		if quantity == 0 {
			return removeLine(ctx, repo, cart.ID, productID)
		}
		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		product, err := s.loadProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if err := checkStock(product, quantity); err != nil {
			return err
		}
		item.Quantity = quantity
		item.UnitPrice = product.PricePerUnit
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart item")
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, actor auth.Actor, productID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, actor, func(_ *gorm.DB, repo CartRepository, cart *models.Cart) error {
		return removeLine(ctx, repo, cart.ID, productID)
	})
}

func (s *service) Clear(ctx context.Context, actor auth.Actor) (*CartDTO, error) {
	return s.mutate(ctx, actor, func(_ *gorm.DB, repo CartRepository, cart *models.Cart) error {
		if err := repo.ClearItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
}

// mutate loads or creates the active cart, applies fn and returns the
// resulting cart in one transaction.
func (s *service) mutate(ctx context.Context, actor auth.Actor, fn func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error) (*CartDTO, error) {
	if !actor.Is(enums.UserRoleRetailer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only retailers have carts")
	}
	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := activeCart(ctx, repo, actor.UserID)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(tx, repo, cart); err != nil {
				return err
			}
			if err := repo.Touch(ctx, cart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "touch cart")
			}
			cart.UpdatedAt = time.Now().UTC()
		}
		lines, err := repo.Lines(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
		}
		out = buildCartDTO(cart.ID, cart.Status, cart.UpdatedAt, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func activeCart(ctx context.Context, repo CartRepository, retailerID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindActive(ctx, retailerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	cart = &models.Cart{RetailerID: retailerID, Status: enums.CartStatusActive}
	if err := repo.Create(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was created concurrently, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return cart, nil
}

func (s *service) loadProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products(tx).FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func checkStock(product *models.Product, quantity int) error {
	if quantity > product.StockQuantity {
		return pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "only %d of %s in stock", product.StockQuantity, product.Name).
			WithDetails(map[string]any{
				"product_id": product.ID,
				"requested":  quantity,
				"available":  product.StockQuantity,
			})
	}
	return nil
}

func removeLine(ctx context.Context, repo CartRepository, cartID, productID uuid.UUID) error {
	removed, err := repo.DeleteItem(ctx, cartID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	return nil
}
