package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Email        string    `bun:",notnull" json:"email"`
	Username     string    `bun:",notnull" json:"username"`
	PasswordHash string    `bun:",notnull" json:"-"`
	Role         string    `bun:",notnull" json:"role"`
	IsActive     bool      `bun:",notnull" json:"is_active"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPermission checks the user's role against the static permission table.
func (u *User) HasPermission(resource, operation string) bool {
	if u == nil || !u.IsActive {
		return false
	}
	return RoleHasPermission(u.Role, resource, operation)
}
