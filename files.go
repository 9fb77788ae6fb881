package auth

import (
	"context"
	"embed"
	"io/fs"

	"github.com/samber/oops"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

const sqliteMigrationsDir = "data/sql/migrations/sqlite"

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// Migrate applies the embedded sqlite migrations that are not yet recorded
// in the bun_migrations table.
func Migrate(ctx context.Context, db *bun.DB) error {
	sqlite, err := fs.Sub(GetMigrationsFS(), sqliteMigrationsDir)
	if err != nil {
		return oops.Code(textCodeStore).Wrapf(err, "read migrations")
	}
	_, err = migrateFS(ctx, db, sqlite)
	return err
}

func migrateFS(ctx context.Context, db *bun.DB, fsys fs.FS) (*migrate.MigrationGroup, error) {
	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, oops.Code(textCodeStore).Wrapf(err, "discover migrations")
	}

	migrator := migrate.NewMigrator(db, migrations, migrate.WithMarkAppliedOnSuccess(true))
	if err := migrator.Init(ctx); err != nil {
		return nil, oops.Code(textCodeStore).Wrapf(err, "init migrations table")
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, oops.Code(textCodeStore).Wrapf(err, "lock migrations")
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return group, oops.Code(textCodeStore).Wrapf(err, "apply migrations")
	}
	return group, nil
}
