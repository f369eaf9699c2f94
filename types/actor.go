package types

import "fmt"

// Role is the closed set of engineering roles known to the governance engine
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// ParseRole maps a wire string to a Role, rejecting anything outside the enum
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEngineer, RoleOperator, RoleViewer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is a member of the closed enum
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Actor identifies who is asking for a governed operation.
// Identity only, no credential material.
type Actor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
