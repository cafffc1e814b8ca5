package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/domain"
)

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// Register inserts user and, for company accounts, the company it owns. The
// returned user carries the new ids.
func (s *UserStore) Register(ctx context.Context, user domain.User, company *domain.Company) (domain.User, *domain.Company, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return user, nil, fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, user.Email); err != nil {
		return user, nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return user, nil, ErrConflict
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)`,
		user.Name, user.Email, user.Password, user.Role)
	if err != nil {
		return user, nil, fmt.Errorf("insert user: %w", err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return user, nil, err
	}

	if company != nil {
		if company.Type == "" {
			company.Type = domain.SupplierCompany
		}
		company.OwnerID = &user.ID
		res, err := tx.ExecContext(ctx, `INSERT INTO companies (name, type, phone, address, owner_id) VALUES (?, ?, ?, ?, ?)`,
			company.Name, company.Type, company.Phone, company.Address, user.ID)
		if err != nil {
			return user, nil, fmt.Errorf("insert company: %w", err)
		}
		if company.ID, err = res.LastInsertId(); err != nil {
			return user, nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET company_id = ? WHERE id = ?`, company.ID, user.ID); err != nil {
			return user, nil, fmt.Errorf("link company owner: %w", err)
		}
		user.CompanyID = &company.ID
	}

	if err := tx.Commit(); err != nil {
		return user, nil, fmt.Errorf("commit registration: %w", err)
	}
	return user, company, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT id, name, email, password, role, company_id, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return user, notFound(err)
}

func (s *UserStore) Get(ctx context.Context, id int64) (domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT id, name, email, password, role, company_id, created_at FROM users WHERE id = ?`, id)
	return user, notFound(err)
}

func (s *UserStore) UpdatePassword(ctx context.Context, id int64, hashed []byte) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, string(hashed), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return affected(res)
}
