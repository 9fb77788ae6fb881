package auth

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func openMemoryDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateRecordsAppliedVersions(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	var names []string
	require.NoError(t, db.NewSelect().Table("bun_migrations").Column("name").Scan(ctx, &names))
	assert.Equal(t, []string{"20260301000000"}, names)

	count, err := db.NewSelect().Table("users").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMigrateSkipsAppliedScripts(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	fsys := fstest.MapFS{
		"0001_create_tours.up.sql": {Data: []byte("CREATE TABLE tours (id TEXT NOT NULL PRIMARY KEY)\n")},
	}
	group, err := migrateFS(ctx, db, fsys)
	require.NoError(t, err)
	assert.Len(t, group.Migrations, 1)

	fsys["0002_add_photo.up.sql"] = &fstest.MapFile{Data: []byte("ALTER TABLE tours ADD COLUMN photo TEXT\n")}
	group, err = migrateFS(ctx, db, fsys)
	require.NoError(t, err)
	require.Len(t, group.Migrations, 1)
	assert.Equal(t, "0002", group.Migrations[0].Name)

	group, err = migrateFS(ctx, db, fsys)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	_, err = db.ExecContext(ctx, "INSERT INTO tours (id, photo) VALUES (?, ?)", "t1", "cover.jpg")
	assert.NoError(t, err)
}

func TestMigrateReportsFailingScript(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	fsys := fstest.MapFS{
		"0001_broken.up.sql": {Data: []byte("ALTER TABLE missing ADD COLUMN photo TEXT\n")},
	}
	_, err := migrateFS(ctx, db, fsys)
	require.Error(t, err)

	applied, err := db.NewSelect().Table("bun_migrations").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
}
