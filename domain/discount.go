package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountBuyGet     DiscountType = "buy_get"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountBuyGet
}

// DiscountRule is a promotional rule published by a company. A rule with no
// MedicineID applies to the whole order (percentage) or to every line
// (buy_get).
type DiscountRule struct {
	ID             ID                  `json:"id"`
	CompanyID      int64               `json:"company_id"`
	DiscountType   DiscountType        `json:"discount_type"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	IsActive       bool                `json:"is_active"`
	StartDate      *time.Time          `json:"start_date,omitempty"`
	EndDate        *time.Time          `json:"end_date,omitempty"`
	MedicineID     ID                  `json:"medicine_id,omitempty"`
	Percentage     decimal.NullDecimal `json:"percentage"`
	MinOrderAmount decimal.NullDecimal `json:"min_order_amount"`
	BuyQuantity    *int64              `json:"buy_quantity,omitempty"`
	GetQuantity    *int64              `json:"get_quantity,omitempty"`
	CreatedAt      string              `json:"created_at,omitempty"`
}

// ItemScoped reports whether the rule targets a single medicine.
func (r DiscountRule) ItemScoped() bool {
	return !r.MedicineID.IsZero()
}
