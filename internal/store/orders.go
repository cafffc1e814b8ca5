package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
)

const orderColumns = `id, pharmacy_id, company_id, status, payment_method, supplier_type, original_amount, total_discount, final_amount, notes, created_at, updated_at`

type OrderStore struct {
	db *sqlx.DB
}

func NewOrderStore(db *sqlx.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create persists order and its items and reserves stock for every unit,
// bonus units included. It fails with ErrOutOfStock when any medicine
// cannot cover its line.
func (s *OrderStore) Create(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.OrderDetail, error) {
	if order.ID.IsZero() {
		order.ID = domain.NewID()
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.OrderDetail{}, fmt.Errorf("begin order: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO orders (id, pharmacy_id, company_id, status, payment_method, supplier_type, original_amount, total_discount, final_amount, notes)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.PharmacyID, order.CompanyID, order.Status, order.PaymentMethod, order.SupplierType,
		order.OriginalAmount, order.TotalDiscount, order.FinalAmount, order.Notes)
	if err != nil {
		return domain.OrderDetail{}, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		res, err := tx.ExecContext(ctx, `UPDATE medicines SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND company_id = ? AND stock >= ?`,
			item.Quantity, item.MedicineID.Canonical(), order.CompanyID, item.Quantity)
		if err != nil {
			return domain.OrderDetail{}, fmt.Errorf("reserve stock: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return domain.OrderDetail{}, err
		} else if n == 0 {
			return domain.OrderDetail{}, fmt.Errorf("medicine %s: %w", item.MedicineID, ErrOutOfStock)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO order_items (order_id, medicine_id, medicine_name, quantity, original_quantity, free_quantity, unit_price, total_price, discount_amount)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			order.ID, item.MedicineID.Canonical(), item.MedicineName, item.Quantity, item.OriginalQuantity, item.FreeQuantity,
			item.UnitPrice, item.TotalPrice, item.DiscountAmount); err != nil {
			return domain.OrderDetail{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.OrderDetail{}, fmt.Errorf("commit order: %w", err)
	}
	return s.Get(ctx, order.ID)
}

func (s *OrderStore) Get(ctx context.Context, id domain.ID) (domain.OrderDetail, error) {
	var detail domain.OrderDetail
	if err := s.db.GetContext(ctx, &detail.Order, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id.Canonical()); err != nil {
		return detail, notFound(err)
	}
	detail.Items = []domain.OrderItem{}
	err := s.db.SelectContext(ctx, &detail.Items, `SELECT id, order_id, medicine_id, medicine_name, quantity, original_quantity, free_quantity, unit_price, total_price, discount_amount
                FROM order_items WHERE order_id = ? ORDER BY id`, detail.ID)
	if err != nil {
		return detail, fmt.Errorf("load order items: %w", err)
	}
	return detail, nil
}

// ListForPharmacy returns the orders a pharmacy placed, newest first.
func (s *OrderStore) ListForPharmacy(ctx context.Context, pharmacyID int64) ([]domain.Order, error) {
	return s.list(ctx, `pharmacy_id = ?`, pharmacyID)
}

// ListForCompany returns the orders a supplier received, newest first.
func (s *OrderStore) ListForCompany(ctx context.Context, companyID int64) ([]domain.Order, error) {
	return s.list(ctx, `company_id = ?`, companyID)
}

func (s *OrderStore) list(ctx context.Context, where string, arg any) ([]domain.Order, error) {
	orders := []domain.Order{}
	if err := s.db.SelectContext(ctx, &orders, `SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY created_at DESC, rowid DESC`, arg); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to status. Rejected and cancelled orders give
// their reserved stock back.
func (s *OrderStore) UpdateStatus(ctx context.Context, id domain.ID, status string) (domain.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	var order domain.Order
	if err := tx.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id.Canonical()); err != nil {
		return order, notFound(err)
	}
	if !domain.CanTransition(order.Status, status) {
		return order, fmt.Errorf("%s to %s: %w", order.Status, status, ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, order.ID); err != nil {
		return order, fmt.Errorf("update order status: %w", err)
	}
	if status == domain.OrderRejected || status == domain.OrderCancelled {
		if _, err := tx.ExecContext(ctx, `UPDATE medicines SET stock = stock + (SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi WHERE oi.order_id = ? AND oi.medicine_id = medicines.id),
                updated_at = CURRENT_TIMESTAMP
                WHERE id IN (SELECT medicine_id FROM order_items WHERE order_id = ?)`, order.ID, order.ID); err != nil {
			return order, fmt.Errorf("release stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return order, fmt.Errorf("commit status update: %w", err)
	}
	order.Status = status
	return order, nil
}

// OrderTotals aggregates a set of orders. Amounts cover only orders that
// still stand; rejected and cancelled orders are counted in ByStatus alone.
type OrderTotals struct {
	OrderCount     int64            `json:"order_count"`
	OriginalAmount decimal.Decimal  `json:"original_amount"`
	TotalDiscount  decimal.Decimal  `json:"total_discount"`
	FinalAmount    decimal.Decimal  `json:"final_amount"`
	ByStatus       map[string]int64 `json:"by_status"`
}

// Totals sums the orders companyID received between from and to, both
// YYYY-MM-DD and inclusive. An empty bound is open.
func (s *OrderStore) Totals(ctx context.Context, companyID int64, from, to string) (OrderTotals, error) {
	query := `SELECT status, original_amount, total_discount, final_amount FROM orders WHERE company_id = ?`
	args := []any{companyID}
	if from != "" {
		query += ` AND DATE(created_at) >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND DATE(created_at) <= ?`
		args = append(args, to)
	}

	var rows []struct {
		Status         string          `db:"status"`
		OriginalAmount decimal.Decimal `db:"original_amount"`
		TotalDiscount  decimal.Decimal `db:"total_discount"`
		FinalAmount    decimal.Decimal `db:"final_amount"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return OrderTotals{}, fmt.Errorf("order totals: %w", err)
	}

	totals := OrderTotals{
		OriginalAmount: decimal.Zero,
		TotalDiscount:  decimal.Zero,
		FinalAmount:    decimal.Zero,
		ByStatus:       map[string]int64{},
	}
	for _, row := range rows {
		totals.OrderCount++
		totals.ByStatus[row.Status]++
		if row.Status == domain.OrderRejected || row.Status == domain.OrderCancelled {
			continue
		}
		totals.OriginalAmount = totals.OriginalAmount.Add(row.OriginalAmount)
		totals.TotalDiscount = totals.TotalDiscount.Add(row.TotalDiscount)
		totals.FinalAmount = totals.FinalAmount.Add(row.FinalAmount)
	}
	return totals, nil
}
