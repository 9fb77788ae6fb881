package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateCriteria narrows an update beyond the primary key. An update that
// matches no row reports ErrRecordNotFound.
type UpdateCriteria func(q *bun.UpdateQuery) *bun.UpdateQuery

// CredentialStore persists user credential records
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByResetHash returns the user whose pending reset token hashes to
	// hash and expires strictly after now.
	FindByResetHash(ctx context.Context, hash string, now time.Time) (*User, error)
	Insert(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User, columns []string, criteria ...UpdateCriteria) error
}

// WhereResetHash guards an update on the reset token still being the one
// that was presented, so a token can be consumed once.
func WhereResetHash(hash string) UpdateCriteria {
	return func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Where("?TableAlias.password_reset_token = ?", hash)
	}
}

// WhereActive guards an update on the account still being active.
func WhereActive() UpdateCriteria {
	return func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Where("?TableAlias.active = ?", true)
	}
}
