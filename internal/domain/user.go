package domain

import "time"

// UserRole is the coarse authorization tier.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// User is the domain model for board members.
//
// AuthUID is the opaque transport identity minted at registration. Realtime
// presence and fan-out key on it, never on the storage row id.
type User struct {
	ID           string
	AuthUID      string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the privileged role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserRef carries the expanded fields of a referenced user.
type UserRef struct {
	ID    string
	Name  string
	Email string
}
