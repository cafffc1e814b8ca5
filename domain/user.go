package domain

const (
	RolePharmacy = "pharmacy"
	RoleCompany  = "company"
	RoleAdmin    = "admin"
)

type User struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"password,omitempty" db:"password"`
	Role      string `json:"role" db:"role"`
	CompanyID *int64 `json:"company_id,omitempty" db:"company_id"`
	CreatedAt string `json:"created_at,omitempty" db:"created_at"`
}
