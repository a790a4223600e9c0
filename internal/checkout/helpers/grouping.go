package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricedLine is a reserved checkout line with its price snapshot.
type PricedLine struct {
	ProductID    uuid.UUID
	FarmerID     uuid.UUID
	Name         string
	Quantity     int
	PricePerUnit decimal.Decimal
}

// Subtotal returns quantity times unit price.
func (l PricedLine) Subtotal() decimal.Decimal {
	return l.PricePerUnit.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FarmerGroup collects the lines one farmer supplies.
type FarmerGroup struct {
	FarmerID uuid.UUID
	Lines    []PricedLine
	Total    decimal.Decimal
}

// GroupByFarmer splits lines per farmer, ordering groups by the farmer's first
// appearance in lines.
func GroupByFarmer(lines []PricedLine) []FarmerGroup {
	index := make(map[uuid.UUID]int, len(lines))
	groups := make([]FarmerGroup, 0)
	for _, line := range lines {
		i, ok := index[line.FarmerID]
		if !ok {
			i = len(groups)
			index[line.FarmerID] = i
			groups = append(groups, FarmerGroup{FarmerID: line.FarmerID, Total: decimal.Zero})
		}
		groups[i].Lines = append(groups[i].Lines, line)
		groups[i].Total = groups[i].Total.Add(line.Subtotal())
	}
	return groups
}

// GrandTotal sums every line.
func GrandTotal(lines []PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
