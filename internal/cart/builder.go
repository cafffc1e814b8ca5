// Package cart turns a pharmacy's selections into priced line items.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
	"pharmalink/m/internal/discount"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("price must not be negative")
	ErrUnknownMedicine   = errors.New("medicine not found in catalog")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Selection is a requested medicine and quantity.
type Selection struct {
	MedicineID domain.ID `json:"medicine_id"`
	Quantity   int64     `json:"quantity"`
}

// Build prices selections against catalog. Repeated medicines are merged
// into one line, keeping the position of their first appearance. It returns
// the line items and the pre-discount order total.
func Build(selections []Selection, catalog []domain.Medicine) ([]discount.LineItem, decimal.Decimal, error) {
	if len(selections) == 0 {
		return nil, decimal.Zero, ErrEmptyCart
	}

	byID := make(map[domain.ID]domain.Medicine, len(catalog))
	for _, m := range catalog {
		byID[m.ID.Canonical()] = m
	}

	var (
		items []discount.LineItem
		index = make(map[domain.ID]int)
	)
	for _, sel := range selections {
		id := sel.MedicineID.Canonical()
		if sel.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("medicine %s: %w", id, ErrInvalidQuantity)
		}
		med, ok := byID[id]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("medicine %s: %w", id, ErrUnknownMedicine)
		}
		if med.Price.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("medicine %s: %w", id, ErrInvalidPrice)
		}
		if i, seen := index[id]; seen {
			items[i].Quantity += sel.Quantity
			continue
		}
		index[id] = len(items)
		items = append(items, discount.LineItem{
			ID:        id,
			Name:      med.Name,
			Quantity:  sel.Quantity,
			UnitPrice: med.Price,
		})
	}

	total := decimal.Zero
	for i := range items {
		med := byID[items[i].ID]
		if med.Stock < items[i].Quantity {
			return nil, decimal.Zero, fmt.Errorf("medicine %s: requested %d, available %d: %w",
				items[i].ID, items[i].Quantity, med.Stock, ErrInsufficientStock)
		}
		items[i].Total = items[i].UnitPrice.Mul(decimal.NewFromInt(items[i].Quantity))
		total = total.Add(items[i].Total)
	}
	return items, total, nil
}

// CheckStock verifies that catalog can cover every priced line including the
// bonus units a buy_get rule granted.
func CheckStock(lines []discount.LineItem, catalog []domain.Medicine) error {
	stock := make(map[domain.ID]int64, len(catalog))
	for _, m := range catalog {
		stock[m.ID.Canonical()] = m.Stock
	}
	for _, line := range lines {
		available := stock[line.ID.Canonical()]
		if available < line.TotalQuantity {
			return fmt.Errorf("medicine %s: requested %d including %d free, available %d: %w",
				line.ID, line.TotalQuantity, line.FreeQuantity, available, ErrInsufficientStock)
		}
	}
	return nil
}
