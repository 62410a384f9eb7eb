package auth

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReadOnly Role = "read-only"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleReadOnly:
		return true
	}
	return false
}

// User is an account. PasswordHash never leaves the package in a response.
type User struct {
	ID           int64     `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio"`
	Currency     string    `json:"currency"`
	Theme        string    `json:"theme"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// ProfileUpdate holds the self-service fields. Nil pointers are left as they are.
type ProfileUpdate struct {
	Name     *string
	Avatar   *string
	Bio      *string
	Currency *string
	Theme    *string
}

type ListFilter struct {
	Role   Role
	Search string
}

type RoleCount struct {
	Role  Role  `json:"_id"`
	Count int64 `json:"count"`
}

type Overview struct {
	TotalUsers  int64       `json:"totalUsers"`
	UsersByRole []RoleCount `json:"usersByRole"`
	RecentUsers []User      `json:"recentUsers"`
}
