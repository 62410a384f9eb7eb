package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spendwise/internal/apperr"
)

func TestCheckRoles(t *testing.T) {
	assert.NoError(t, CheckRoles(&User{Role: RoleAdmin}, RoleAdmin, RoleUser))

	err := CheckRoles(&User{Role: RoleReadOnly}, RoleAdmin, RoleUser)
	var e *apperr.Error
	if assert.ErrorAs(t, err, &e) {
		assert.Equal(t, apperr.KindForbidden, e.Kind)
		assert.Equal(t, "Access denied. Required role(s): admin, user. Your role: read-only", e.Message)
	}

	assert.True(t, apperr.Is(CheckRoles(nil, RoleAdmin), apperr.KindUnauthenticated))
}

func TestCanWrite(t *testing.T) {
	assert.NoError(t, CanWrite(&User{Role: RoleAdmin}))
	assert.NoError(t, CanWrite(&User{Role: RoleUser}))

	err := CanWrite(&User{Role: RoleReadOnly})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Contains(t, err.Error(), "Your role: read-only")

	assert.True(t, apperr.Is(CanWrite(nil), apperr.KindUnauthenticated))
}

func TestIsAdmin(t *testing.T) {
	assert.NoError(t, IsAdmin(&User{Role: RoleAdmin}))
	assert.True(t, apperr.Is(IsAdmin(&User{Role: RoleUser}), apperr.KindForbidden))
	assert.True(t, apperr.Is(IsAdmin(&User{Role: RoleReadOnly}), apperr.KindForbidden))
	assert.Contains(t, IsAdmin(&User{Role: RoleReadOnly}).Error(), "Admin role required. Your role: read-only")
}

func TestCanAccessOwner(t *testing.T) {
	assert.NoError(t, CanAccessOwner(&User{ID: 1, Role: RoleUser}, 1))
	assert.NoError(t, CanAccessOwner(&User{ID: 1, Role: RoleReadOnly}, 1))
	assert.NoError(t, CanAccessOwner(&User{ID: 1, Role: RoleAdmin}, 2))

	err := CanAccessOwner(&User{ID: 1, Role: RoleUser}, 2)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Contains(t, err.Error(), "You can only access your own data")
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleReadOnly.Valid())
	assert.False(t, Role("read_only").Valid())
	assert.False(t, Role("").Valid())
}
