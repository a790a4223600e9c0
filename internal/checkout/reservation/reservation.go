package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

// StockRequest asks for qty units of a product.
type StockRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// StockResult reports the outcome of one request. Product is the row as read
// under lock, before the decrement.
type StockResult struct {
	ProductID uuid.UUID
	Qty       int
	Reserved  bool
	Reason    string
	Product   *models.Product
}

// ReserveStock decrements product stock for each request in order using a
// guarded UPDATE. A request the guard rejects is reported with Reserved=false
// and leaves stock untouched. Callers decide whether a partial result aborts
// the transaction.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []StockRequest) ([]StockResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	results := make([]StockResult, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
		}
		result := StockResult{ProductID: req.ProductID, Qty: req.Qty}

		var product models.Product
		err := db.ForUpdate(tx.WithContext(ctx)).First(&product, "id = ?", req.ProductID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Reason = "product not found"
				results = append(results, result)
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		result.Product = &product

		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock_quantity >= ?", req.ProductID, req.Qty).
			Updates(map[string]any{
				"stock_quantity": gorm.Expr("stock_quantity - ?", req.Qty),
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			result.Reason = fmt.Sprintf("insufficient stock for %s", product.Name)
		} else {
			result.Reserved = true
		}
		results = append(results, result)
	}
	return results, nil
}
