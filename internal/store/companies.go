package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/domain"
)

type CompanyStore struct {
	db *sqlx.DB
}

func NewCompanyStore(db *sqlx.DB) *CompanyStore {
	return &CompanyStore{db: db}
}

func (s *CompanyStore) Get(ctx context.Context, id int64) (domain.Company, error) {
	var c domain.Company
	err := s.db.GetContext(ctx, &c, `SELECT id, name, type, phone, address, owner_id, created_at FROM companies WHERE id = ?`, id)
	return c, notFound(err)
}

// List returns suppliers, optionally restricted to one supplier type.
func (s *CompanyStore) List(ctx context.Context, supplierType string) ([]domain.Company, error) {
	query := `SELECT id, name, type, phone, address, owner_id, created_at FROM companies`
	var args []any
	if supplierType != "" {
		query += ` WHERE type = ?`
		args = append(args, supplierType)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	companies := []domain.Company{}
	if err := s.db.SelectContext(ctx, &companies, query, args...); err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}
