package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/uptrace/bun"
)

// Users is the bun backed credential store
type Users interface {
	CredentialStore

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, user *User, columns []string, criteria ...UpdateCriteria) error
	List(ctx context.Context) ([]*User, error)
}

type users struct {
	db    *bun.DB
	clock Clock
}

var _ Users = (*users)(nil)

type UsersOption func(*users)

// WithUsersClock sets the clock used for created_at and updated_at.
func WithUsersClock(clock Clock) UsersOption {
	return func(u *users) {
		if clock != nil {
			u.clock = clock
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := &users{db: db, clock: SystemClock}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)
	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "email", email)
	}
	return record, nil
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "id", id.String())
	}
	return record, nil
}

func (a *users) FindByResetHash(ctx context.Context, hash string, now time.Time) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.password_reset_token = ?", hash).
		Where("?TableAlias.password_reset_expires > ?", now.UTC()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "reset_token", "[redacted]")
	}
	return record, nil
}

func (a *users) Insert(ctx context.Context, user *User) (*User, error) {
	return a.InsertTx(ctx, a.db, user)
}

func (a *users) InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if err := prepareUserDefaults(user, a.clock.Now()); err != nil {
		return nil, err
	}

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code(textCodeConflict).With("email", user.Email).Wrap(ErrConflict)
		}
		return nil, oops.Code(textCodeStore).With("email", user.Email).Wrapf(err, "insert user")
	}
	return user, nil
}

func (a *users) Update(ctx context.Context, user *User, columns []string, criteria ...UpdateCriteria) error {
	return a.UpdateTx(ctx, a.db, user, columns, criteria...)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, user *User, columns []string, criteria ...UpdateCriteria) error {
	if len(columns) == 0 {
		return nil
	}
	if containsColumn(columns, ColumnRole) && !user.Role.IsValid() {
		return oops.Code(textCodeValidation).With("role", user.Role).Wrap(ErrInvalidRole)
	}

	user.UpdatedAt = a.clock.Now().UTC()
	cols := append(append([]string{}, columns...), ColumnUpdatedAt)

	q := tx.NewUpdate().Model(user).Column(cols...).WherePK()
	for _, c := range criteria {
		if c != nil {
			q = c(q)
		}
	}

	res, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code(textCodeConflict).With("email", user.Email).Wrap(ErrConflict)
		}
		return oops.Code(textCodeStore).With("id", user.ID.String()).Wrapf(err, "update user")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return oops.Code(textCodeStore).Wrapf(err, "update user rows affected")
	}
	if affected == 0 {
		return oops.Code(textCodeStore).With("id", user.ID.String()).Wrap(ErrRecordNotFound)
	}
	return nil
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	var records []*User
	if err := a.db.NewSelect().Model(&records).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, oops.Code(textCodeStore).Wrapf(err, "list users")
	}
	return records, nil
}

// NormalizeEmail trims and lower cases an address so lookups are case
// insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUserDefaults(record *User, now time.Time) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Role == "" {
		record.Role = RoleUser
	}
	if !record.Role.IsValid() {
		return oops.Code(textCodeValidation).With("role", record.Role).Wrap(ErrInvalidRole)
	}
	record.Email = NormalizeEmail(record.Email)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now.UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	return nil
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

func storeError(err error, key, value string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return oops.Code(textCodeStore).With(key, value).Wrap(ErrRecordNotFound)
	}
	return oops.Code(textCodeStore).With(key, value).Wrapf(err, "select user")
}
