package domain

import "github.com/shopspring/decimal"

// Medicine is one entry of a supplier's catalog.
type Medicine struct {
	ID           ID              `db:"id" json:"id"`
	CompanyID    int64           `db:"company_id" json:"company_id"`
	Name         string          `db:"name" json:"name"`
	GenericName  string          `db:"generic_name" json:"generic_name"`
	Manufacturer string          `db:"manufacturer" json:"manufacturer"`
	Form         string          `db:"form" json:"form"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Stock        int64           `db:"stock" json:"stock"`
	ExpiryDate   *string         `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	UpdatedAt    string          `db:"updated_at" json:"updated_at"`
}
