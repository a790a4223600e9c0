package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// AddItemInput adds a product to the cart.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" form:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" form:"quantity" validate:"required,gt=0"`
}

// UpdateItemInput sets a line quantity. Zero removes the line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" form:"quantity" validate:"gte=0"`
}

type CartItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	FarmerID  uuid.UUID       `json:"farmer_id"`
	Name      string          `json:"name"`
	Unit      enums.Unit      `json:"unit"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	InStock   int             `json:"in_stock"`
}

type CartDTO struct {
	ID        uuid.UUID        `json:"id"`
	Status    enums.CartStatus `json:"status"`
	Items     []CartItemDTO    `json:"items"`
	ItemCount int              `json:"item_count"`
	Total     decimal.Decimal  `json:"total"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func buildCartDTO(id uuid.UUID, status enums.CartStatus, updatedAt time.Time, lines []Line) *CartDTO {
	dto := &CartDTO{
		ID:        id,
		Status:    status,
		Items:     make([]CartItemDTO, 0, len(lines)),
		Total:     decimal.Zero,
		UpdatedAt: updatedAt,
	}
	for _, line := range lines {
		subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		dto.Items = append(dto.Items, CartItemDTO{
			ProductID: line.ProductID,
			FarmerID:  line.FarmerID,
			Name:      line.Name,
			Unit:      line.Unit,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  subtotal,
			InStock:   line.StockQuantity,
		})
		dto.ItemCount += line.Quantity
		dto.Total = dto.Total.Add(subtotal)
	}
	return dto
}
