package auth

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

// ValidRole reports whether role names one of the known roles exactly.
func ValidRole(role string) bool {
	return role == string(RoleUser) || role == string(RoleAdmin)
}

func HasRole(role string, allowed ...Role) bool {
	if len(allowed) == 0 {
		return false
	}
	current := NormalizeRole(role)
	for _, candidate := range allowed {
		if current == candidate {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}

// Identity is the acting account resolved from a bearer token.
type Identity struct {
	AccountID int64
	Username  string
	Role      Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanManage is the owner-or-admin rule.
func (i Identity) CanManage(ownerID int64) bool {
	return i.IsAdmin() || (i.AccountID > 0 && i.AccountID == ownerID)
}
