package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/domain"
)

const medicineColumns = `id, company_id, name, generic_name, manufacturer, form, price, stock, expiry_date, created_at, updated_at`

type MedicineStore struct {
	db *sqlx.DB
}

func NewMedicineStore(db *sqlx.DB) *MedicineStore {
	return &MedicineStore{db: db}
}

func (s *MedicineStore) Create(ctx context.Context, m domain.Medicine) (domain.Medicine, error) {
	if m.ID.IsZero() {
		m.ID = domain.NewID()
	}
	m.ID = m.ID.Canonical()
	_, err := s.db.ExecContext(ctx, `INSERT INTO medicines (id, company_id, name, generic_name, manufacturer, form, price, stock, expiry_date)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CompanyID, m.Name, m.GenericName, m.Manufacturer, m.Form, m.Price, m.Stock, m.ExpiryDate)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return m, ErrConflict
		}
		return m, fmt.Errorf("insert medicine: %w", err)
	}
	return s.Get(ctx, m.ID)
}

// Update rewrites a medicine owned by m.CompanyID.
func (s *MedicineStore) Update(ctx context.Context, m domain.Medicine) error {
	res, err := s.db.ExecContext(ctx, `UPDATE medicines SET name = ?, generic_name = ?, manufacturer = ?, form = ?, price = ?, stock = ?, expiry_date = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ? AND company_id = ?`,
		m.Name, m.GenericName, m.Manufacturer, m.Form, m.Price, m.Stock, m.ExpiryDate, m.ID.Canonical(), m.CompanyID)
	if err != nil {
		return fmt.Errorf("update medicine: %w", err)
	}
	return affected(res)
}

func (s *MedicineStore) Get(ctx context.Context, id domain.ID) (domain.Medicine, error) {
	var m domain.Medicine
	err := s.db.GetContext(ctx, &m, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id.Canonical())
	return m, notFound(err)
}

// ListForCompany returns a company's catalog ordered by name. A non-empty
// query filters by name or generic name.
func (s *MedicineStore) ListForCompany(ctx context.Context, companyID int64, query string) ([]domain.Medicine, error) {
	sqlQuery := `SELECT ` + medicineColumns + ` FROM medicines WHERE company_id = ?`
	args := []any{companyID}
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + query + "%"
		sqlQuery += ` AND (name LIKE ? OR generic_name LIKE ?)`
		args = append(args, like, like)
	}
	sqlQuery += ` ORDER BY name`

	medicines := []domain.Medicine{}
	if err := s.db.SelectContext(ctx, &medicines, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return medicines, nil
}

// Delete removes a medicine owned by companyID. Rules targeting it go with it;
// past order lines keep their copied name and price.
func (s *MedicineStore) Delete(ctx context.Context, companyID int64, id domain.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ? AND company_id = ?`, id.Canonical(), companyID)
	if err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	return affected(res)
}

// StockAlerts groups the catalog rows a company should act on.
type StockAlerts struct {
	MedicineCount int64             `json:"medicine_count"`
	Expired       []domain.Medicine `json:"expired"`
	ExpiringSoon  []domain.Medicine `json:"expiring_soon"`
	LowStock      []domain.Medicine `json:"low_stock"`
}

// Alerts reports medicines past their expiry on day today, expiring within
// days after it, and holding fewer than lowStock units.
func (s *MedicineStore) Alerts(ctx context.Context, companyID int64, today time.Time, days int, lowStock int64) (StockAlerts, error) {
	alerts := StockAlerts{
		Expired:      []domain.Medicine{},
		ExpiringSoon: []domain.Medicine{},
		LowStock:     []domain.Medicine{},
	}
	if err := s.db.GetContext(ctx, &alerts.MedicineCount, `SELECT COUNT(*) FROM medicines WHERE company_id = ?`, companyID); err != nil {
		return alerts, fmt.Errorf("count medicines: %w", err)
	}

	start := today.Format(dateLayout)
	horizon := today.AddDate(0, 0, days).Format(dateLayout)
	if err := s.db.SelectContext(ctx, &alerts.Expired, `SELECT `+medicineColumns+` FROM medicines
                WHERE company_id = ? AND expiry_date IS NOT NULL AND expiry_date <> '' AND expiry_date < ?
                ORDER BY expiry_date ASC`, companyID, start); err != nil {
		return alerts, fmt.Errorf("expired medicines: %w", err)
	}
	if err := s.db.SelectContext(ctx, &alerts.ExpiringSoon, `SELECT `+medicineColumns+` FROM medicines
                WHERE company_id = ? AND expiry_date >= ? AND expiry_date <= ?
                ORDER BY expiry_date ASC`, companyID, start, horizon); err != nil {
		return alerts, fmt.Errorf("expiring medicines: %w", err)
	}
	if err := s.db.SelectContext(ctx, &alerts.LowStock, `SELECT `+medicineColumns+` FROM medicines
                WHERE company_id = ? AND stock < ?
                ORDER BY stock ASC, name`, companyID, lowStock); err != nil {
		return alerts, fmt.Errorf("low stock medicines: %w", err)
	}
	return alerts, nil
}
