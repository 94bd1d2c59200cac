package auth

import "time"

// Roles understood by the authorization middleware.
const (
	RoleAdmin   = "ADMIN"
	RoleFinance = "FINANCE"
	RoleSales   = "SALES"
	RoleOps     = "OPS"
)

// User represents an authenticated user account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether the role is one the middleware understands.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleFinance, RoleSales, RoleOps:
		return true
	}
	return false
}
