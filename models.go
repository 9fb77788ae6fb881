package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Column names used for partial updates.
const (
	ColumnName                = "name"
	ColumnEmail               = "email"
	ColumnRole                = "role"
	ColumnPasswordHash        = "password_hash"
	ColumnPasswordChangedAt   = "password_changed_at"
	ColumnResetTokenHash      = "password_reset_token"
	ColumnResetTokenExpiresAt = "password_reset_expires"
	ColumnActive              = "active"
	ColumnUpdatedAt           = "updated_at"
)

// User is the persisted credential record
type User struct {
	bun.BaseModel       `bun:"table:users,alias:usr"`
	ID                  uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name                string     `bun:"name,notnull" json:"name"`
	Email               string     `bun:"email,notnull,unique" json:"email"`
	Role                Role       `bun:"role,notnull" json:"role"`
	PasswordHash        string     `bun:"password_hash,notnull" json:"-"`
	PasswordChangedAt   *time.Time `bun:"password_changed_at" json:"-"`
	ResetTokenHash      *string    `bun:"password_reset_token" json:"-"`
	ResetTokenExpiresAt *time.Time `bun:"password_reset_expires" json:"-"`
	Active              bool       `bun:"active,notnull" json:"-"`
	CreatedAt           time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// HasPendingReset reports whether a reset token is set and still valid at now.
func (u *User) HasPendingReset(now time.Time) bool {
	if u == nil || u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil {
		return false
	}
	return u.ResetTokenExpiresAt.After(now)
}

type userIdentity struct {
	id    string
	name  string
	email string
	role  Role
}

// NewIdentity builds an Identity from plain attributes.
func NewIdentity(id, name, email string, role Role) Identity {
	return userIdentity{id: id, name: name, email: email, role: role}
}

// IdentityFromUser snapshots the public attributes of user.
func IdentityFromUser(user *User) Identity {
	return userIdentity{
		id:    user.ID.String(),
		name:  user.Name,
		email: user.Email,
		role:  user.Role,
	}
}

func (i userIdentity) ID() string    { return i.id }
func (i userIdentity) Name() string  { return i.name }
func (i userIdentity) Email() string { return i.email }
func (i userIdentity) Role() Role    { return i.role }
