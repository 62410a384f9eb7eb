package auth

import (
	"fmt"
	"strings"

	"spendwise/internal/apperr"
)

var writeRoles = []Role{RoleAdmin, RoleUser}

func hasRole(role Role, roles []Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CheckRoles allows u when its role is one of roles.
func CheckRoles(u *User, roles ...Role) error {
	if u == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if !hasRole(u.Role, roles) {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		return apperr.Forbidden(fmt.Sprintf("Access denied. Required role(s): %s. Your role: %s",
			strings.Join(names, ", "), u.Role))
	}
	return nil
}

func CanWrite(u *User) error {
	if u == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if !hasRole(u.Role, writeRoles) {
		return apperr.Forbidden(fmt.Sprintf("Access denied. Write operations require admin or user role. Your role: %s", u.Role))
	}
	return nil
}

func IsAdmin(u *User) error {
	if u == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if u.Role != RoleAdmin {
		return apperr.Newf(apperr.KindForbidden, "Access denied. Admin role required. Your role: %s", u.Role)
	}
	return nil
}

// CanAccessOwner allows admins to reach any owner and everyone else only
// their own records.
func CanAccessOwner(u *User, ownerID int64) error {
	if u == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if u.Role == RoleAdmin || u.ID == ownerID {
		return nil
	}
	return apperr.Forbidden("Access denied. You can only access your own data")
}
