package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required by the ordering backend.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            company_id INTEGER,
            created_at TEXT DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS companies (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT 'company',
            phone TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            owner_id INTEGER,
            created_at TEXT DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(owner_id) REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS medicines (
            id TEXT PRIMARY KEY,
            company_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            generic_name TEXT NOT NULL DEFAULT '',
            manufacturer TEXT NOT NULL DEFAULT '',
            form TEXT NOT NULL DEFAULT '',
            price TEXT NOT NULL,
            stock INTEGER NOT NULL DEFAULT 0,
            expiry_date TEXT,
            created_at TEXT DEFAULT CURRENT_TIMESTAMP,
            updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(company_id, name),
            FOREIGN KEY(company_id) REFERENCES companies(id)
        );`,
		`CREATE TABLE IF NOT EXISTS company_discounts (
            id TEXT PRIMARY KEY,
            company_id INTEGER NOT NULL,
            discount_type TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            percentage TEXT,
            min_order_amount TEXT,
            buy_quantity INTEGER,
            get_quantity INTEGER,
            medicine_id TEXT,
            is_active INTEGER NOT NULL DEFAULT 1,
            start_date TEXT,
            end_date TEXT,
            created_at TEXT DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(company_id) REFERENCES companies(id),
            FOREIGN KEY(medicine_id) REFERENCES medicines(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            pharmacy_id INTEGER NOT NULL,
            company_id INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            payment_method TEXT NOT NULL DEFAULT '',
            supplier_type TEXT NOT NULL DEFAULT 'company',
            original_amount TEXT NOT NULL,
            total_discount TEXT NOT NULL DEFAULT '0',
            final_amount TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            created_at TEXT DEFAULT CURRENT_TIMESTAMP,
            updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(pharmacy_id) REFERENCES users(id),
            FOREIGN KEY(company_id) REFERENCES companies(id)
        );`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id TEXT NOT NULL,
            medicine_id TEXT NOT NULL,
            medicine_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            original_quantity INTEGER NOT NULL,
            free_quantity INTEGER NOT NULL DEFAULT 0,
            unit_price TEXT NOT NULL,
            total_price TEXT NOT NULL,
            discount_amount TEXT NOT NULL DEFAULT '0',
            FOREIGN KEY(order_id) REFERENCES orders(id)
        );`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            is_read INTEGER NOT NULL DEFAULT 0,
            created_at TEXT DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(user_id) REFERENCES users(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_discounts_company ON company_discounts(company_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_pharmacy ON orders(pharmacy_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_company ON orders(company_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
