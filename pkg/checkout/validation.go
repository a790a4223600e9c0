package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

// LineInput is one requested (product, quantity) pair.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" form:"product_id"`
	Quantity  int       `json:"quantity" form:"quantity"`
}

// LineViolationDetail exposes the data returned to callers when a line is rejected.
type LineViolationDetail struct {
	Index     int       `json:"index"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

// ValidateLines ensures the list is non-empty and every line names a product
// with a positive quantity.
func ValidateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	var violations []LineViolationDetail
	for i, line := range lines {
		switch {
		case line.ProductID == uuid.Nil:
			violations = append(violations, LineViolationDetail{Index: i, Quantity: line.Quantity, Reason: "product_id is required"})
		case line.Quantity <= 0:
			violations = append(violations, LineViolationDetail{Index: i, ProductID: line.ProductID, Quantity: line.Quantity, Reason: "quantity must be greater than zero"})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%d invalid item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
