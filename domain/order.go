package domain

import "github.com/shopspring/decimal"

const (
	OrderPending   = "pending"
	OrderApproved  = "approved"
	OrderRejected  = "rejected"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID             ID              `db:"id" json:"id"`
	PharmacyID     int64           `db:"pharmacy_id" json:"pharmacy_id"`
	CompanyID      int64           `db:"company_id" json:"company_id"`
	Status         string          `db:"status" json:"status"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	SupplierType   string          `db:"supplier_type" json:"supplier_type"`
	OriginalAmount decimal.Decimal `db:"original_amount" json:"original_amount"`
	TotalDiscount  decimal.Decimal `db:"total_discount" json:"total_discount"`
	FinalAmount    decimal.Decimal `db:"final_amount" json:"final_amount"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedAt      string          `db:"created_at" json:"created_at"`
	UpdatedAt      string          `db:"updated_at" json:"updated_at"`
}

// OrderItem is a persisted order line. Quantity includes bonus units;
// OriginalQuantity is what the pharmacy pays for.
type OrderItem struct {
	ID               int64           `db:"id" json:"id"`
	OrderID          ID              `db:"order_id" json:"order_id"`
	MedicineID       ID              `db:"medicine_id" json:"medicine_id"`
	MedicineName     string          `db:"medicine_name" json:"medicine_name"`
	Quantity         int64           `db:"quantity" json:"quantity"`
	OriginalQuantity int64           `db:"original_quantity" json:"original_quantity"`
	FreeQuantity     int64           `db:"free_quantity" json:"free_quantity"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice       decimal.Decimal `db:"total_price" json:"total_price"`
	DiscountAmount   decimal.Decimal `db:"discount_amount" json:"discount_amount"`
}

type OrderDetail struct {
	Order
	Items []OrderItem `json:"items"`
}

type Notification struct {
	ID        int64  `db:"id" json:"id"`
	UserID    int64  `db:"user_id" json:"user_id"`
	Title     string `db:"title" json:"title"`
	Body      string `db:"body" json:"body"`
	IsRead    bool   `db:"is_read" json:"is_read"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

var orderTransitions = map[string][]string{
	OrderPending:  {OrderApproved, OrderRejected, OrderCancelled},
	OrderApproved: {OrderDelivered, OrderCancelled},
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
