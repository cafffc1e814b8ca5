package discount

import (
	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
)

// Kind tags an applied discount entry.
type Kind string

const (
	KindMedicine Kind = "medicine"
	KindBuyGet   Kind = "buy_get"
	KindOrder    Kind = "order"
)

// LineItem is one cart entry. The engine fills the annotation fields on its
// own copies; callers keep their slice untouched.
type LineItem struct {
	ID        domain.ID       `json:"id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`

	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	DiscountedTotal  decimal.Decimal `json:"discounted_total"`
	Discounted       bool            `json:"discounted"`
	FreeQuantity     int64           `json:"free_quantity"`
	OriginalQuantity int64           `json:"original_quantity"`
	TotalQuantity    int64           `json:"total_quantity"`
}

// AppliedDiscount records one rule application.
type AppliedDiscount struct {
	Kind         Kind                `json:"type"`
	Rule         domain.DiscountRule `json:"discount"`
	Medicine     string              `json:"medicine,omitempty"`
	MedicineID   domain.ID           `json:"medicine_id,omitempty"`
	Amount       decimal.Decimal     `json:"amount"`
	Description  string              `json:"description,omitempty"`
	FreeQuantity int64               `json:"free_quantity,omitempty"`
	IsGeneral    bool                `json:"is_general,omitempty"`
	Items        []domain.ID         `json:"items,omitempty"`
}

// SkippedRule is a rule that took no part in the calculation.
type SkippedRule struct {
	RuleID domain.ID `json:"rule_id"`
	Reason string    `json:"reason"`
}

// Result is the priced order: every applied entry, the monetary totals and
// the annotated line items.
type Result struct {
	AppliedDiscounts       []AppliedDiscount `json:"applied_discounts"`
	TotalDiscount          decimal.Decimal   `json:"total_discount"`
	FinalAmount            decimal.Decimal   `json:"final_amount"`
	OriginalAmount         decimal.Decimal   `json:"original_amount"`
	MedicinesWithDiscounts []LineItem        `json:"medicines_with_discounts"`
	Skipped                []SkippedRule     `json:"skipped,omitempty"`
}

// Item returns the annotated line item with the given id.
func (r Result) Item(id domain.ID) (LineItem, bool) {
	for _, item := range r.MedicinesWithDiscounts {
		if item.ID.Same(id) {
			return item, true
		}
	}
	return LineItem{}, false
}

// FreeUnits sums the bonus units granted across all lines.
func (r Result) FreeUnits() int64 {
	var n int64
	for _, item := range r.MedicinesWithDiscounts {
		n += item.FreeQuantity
	}
	return n
}
