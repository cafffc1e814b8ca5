package domain

// Supplier types. Warehouses publish a catalog but no discount rules.
const (
	SupplierCompany   = "company"
	SupplierWarehouse = "warehouse"
)

type Company struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Type      string `db:"type" json:"type"`
	Phone     string `db:"phone" json:"phone"`
	Address   string `db:"address" json:"address"`
	OwnerID   *int64 `db:"owner_id" json:"owner_id,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// CompanyDetail is a company together with its catalog and currently valid rules.
type CompanyDetail struct {
	Company
	Medicines []Medicine     `json:"medicines"`
	Discounts []DiscountRule `json:"discounts"`
}
