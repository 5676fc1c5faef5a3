package identity

import "time"

// Roles form a closed set; anything else is rejected at the repository
// boundary.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered identity. PasswordHash is the bcrypt digest of the
// credential; the raw secret is never stored.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Verified     bool
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
