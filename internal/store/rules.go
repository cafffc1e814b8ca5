package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
)

const ruleColumns = `id, company_id, discount_type, name, description, percentage, min_order_amount,
                buy_quantity, get_quantity, medicine_id, is_active, start_date, end_date, created_at`

type ruleRow struct {
	ID             domain.ID           `db:"id"`
	CompanyID      int64               `db:"company_id"`
	DiscountType   string              `db:"discount_type"`
	Name           string              `db:"name"`
	Description    string              `db:"description"`
	Percentage     decimal.NullDecimal `db:"percentage"`
	MinOrderAmount decimal.NullDecimal `db:"min_order_amount"`
	BuyQuantity    sql.NullInt64       `db:"buy_quantity"`
	GetQuantity    sql.NullInt64       `db:"get_quantity"`
	MedicineID     sql.NullString      `db:"medicine_id"`
	IsActive       bool                `db:"is_active"`
	StartDate      sql.NullString      `db:"start_date"`
	EndDate        sql.NullString      `db:"end_date"`
	CreatedAt      string              `db:"created_at"`
}

func (r ruleRow) rule() (domain.DiscountRule, error) {
	rule := domain.DiscountRule{
		ID:             r.ID,
		CompanyID:      r.CompanyID,
		DiscountType:   domain.DiscountType(r.DiscountType),
		Name:           r.Name,
		Description:    r.Description,
		IsActive:       r.IsActive,
		MedicineID:     domain.ID(r.MedicineID.String).Canonical(),
		Percentage:     r.Percentage,
		MinOrderAmount: r.MinOrderAmount,
		CreatedAt:      r.CreatedAt,
	}
	if r.BuyQuantity.Valid {
		rule.BuyQuantity = &r.BuyQuantity.Int64
	}
	if r.GetQuantity.Valid {
		rule.GetQuantity = &r.GetQuantity.Int64
	}
	var err error
	if rule.StartDate, err = ParseDate(r.StartDate.String, false); err != nil {
		return rule, fmt.Errorf("rule %s start_date: %w", r.ID, err)
	}
	if rule.EndDate, err = ParseDate(r.EndDate.String, true); err != nil {
		return rule, fmt.Errorf("rule %s end_date: %w", r.ID, err)
	}
	return rule, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullID(id domain.ID) sql.NullString {
	if id.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: id.Canonical().String(), Valid: true}
}

// RuleStore is the repository of company discount rules.
type RuleStore struct {
	db *sqlx.DB
}

func NewRuleStore(db *sqlx.DB) *RuleStore {
	return &RuleStore{db: db}
}

func (s *RuleStore) Create(ctx context.Context, rule domain.DiscountRule) (domain.DiscountRule, error) {
	if rule.ID.IsZero() {
		rule.ID = domain.NewID()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO company_discounts (`+ruleColumns+`)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		rule.ID.Canonical(), rule.CompanyID, string(rule.DiscountType), rule.Name, rule.Description,
		rule.Percentage, rule.MinOrderAmount, nullInt(rule.BuyQuantity), nullInt(rule.GetQuantity),
		nullID(rule.MedicineID), rule.IsActive, formatDate(rule.StartDate), formatDate(rule.EndDate))
	if err != nil {
		return rule, fmt.Errorf("insert discount: %w", err)
	}
	return s.Get(ctx, rule.ID)
}

// Update rewrites a rule owned by rule.CompanyID.
func (s *RuleStore) Update(ctx context.Context, rule domain.DiscountRule) error {
	res, err := s.db.ExecContext(ctx, `UPDATE company_discounts SET discount_type = ?, name = ?, description = ?, percentage = ?,
                min_order_amount = ?, buy_quantity = ?, get_quantity = ?, medicine_id = ?, is_active = ?, start_date = ?, end_date = ?
                WHERE id = ? AND company_id = ?`,
		string(rule.DiscountType), rule.Name, rule.Description, rule.Percentage, rule.MinOrderAmount,
		nullInt(rule.BuyQuantity), nullInt(rule.GetQuantity), nullID(rule.MedicineID), rule.IsActive,
		formatDate(rule.StartDate), formatDate(rule.EndDate), rule.ID.Canonical(), rule.CompanyID)
	if err != nil {
		return fmt.Errorf("update discount: %w", err)
	}
	return affected(res)
}

func (s *RuleStore) SetActive(ctx context.Context, companyID int64, id domain.ID, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE company_discounts SET is_active = ? WHERE id = ? AND company_id = ?`,
		active, id.Canonical(), companyID)
	if err != nil {
		return fmt.Errorf("toggle discount: %w", err)
	}
	return affected(res)
}

func (s *RuleStore) Delete(ctx context.Context, companyID int64, id domain.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM company_discounts WHERE id = ? AND company_id = ?`, id.Canonical(), companyID)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	return affected(res)
}

func (s *RuleStore) Get(ctx context.Context, id domain.ID) (domain.DiscountRule, error) {
	var row ruleRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+ruleColumns+` FROM company_discounts WHERE id = ?`, id.Canonical()); err != nil {
		return domain.DiscountRule{}, notFound(err)
	}
	return row.rule()
}

// ListForCompany returns a company's rules, newest first.
func (s *RuleStore) ListForCompany(ctx context.Context, companyID int64, activeOnly bool) ([]domain.DiscountRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM company_discounts WHERE company_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	var rows []ruleRow
	if err := s.db.SelectContext(ctx, &rows, query, companyID); err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	rules := make([]domain.DiscountRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
