package domain

import (
	"strings"

	dErrors "rctrack/pkg/domain-errors"
)

// Role is the coarse permission level of a principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"

	// roleLegacyUser is what older tokens carry for dealership staff.
	roleLegacyUser = "user"
)

// ParseRole maps a token role claim onto a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleStaff), roleLegacyUser:
		return RoleStaff, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "role is required")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
	}
}

func (r Role) String() string { return string(r) }

// Principal is the authenticated actor of a request. It is supplied per request by
// the authentication middleware and passed explicitly into every core operation.
type Principal struct {
	ID   UserID
	Role Role
	// Name is the display name from the token, when the issuer includes one.
	Name string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
