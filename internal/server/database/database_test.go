package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		token       string
		wantDialect dbx.Dialect
		wantDSN     string
		wantErr     bool
	}{
		{name: "empty", url: "", wantErr: true},
		{
			name:        "memory",
			url:         ":memory:",
			wantDialect: dbx.DialectSQLite,
			wantDSN:     "file::memory:?" + sqlitePragmas,
		},
		{
			name:        "plain path",
			url:         "data/cloudconfig.db",
			wantDialect: dbx.DialectSQLite,
			wantDSN:     "file:data/cloudconfig.db?" + sqlitePragmas,
		},
		{
			name:        "file url with params",
			url:         "file:cc.db?mode=rwc",
			wantDialect: dbx.DialectSQLite,
			wantDSN:     "file:cc.db?mode=rwc&" + sqlitePragmas,
		},
		{
			name:        "postgres with password keeps it",
			url:         "postgres://app:secret@db:5432/cc",
			token:       "token",
			wantDialect: dbx.DialectPostgres,
			wantDSN:     "postgres://app:secret@db:5432/cc",
		},
		{
			name:        "postgres token becomes password",
			url:         "postgresql://app@db:5432/cc?sslmode=disable",
			token:       "token",
			wantDialect: dbx.DialectPostgres,
			wantDSN:     "postgresql://app:token@db:5432/cc?sslmode=disable",
		},
		{
			name:        "postgres without token",
			url:         "postgres://app@db/cc",
			wantDialect: dbx.DialectPostgres,
			wantDSN:     "postgres://app@db/cc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, dsn, err := DSN(tt.url, tt.token)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDialect, d)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func tableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'goose%' AND name NOT LIKE 'sqlite%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestOpenAndMigrate_Memory(t *testing.T) {
	ctx := context.Background()

	db, dialect, err := Open(ctx, MemoryURL, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, dbx.DialectSQLite, dialect)

	require.NoError(t, Migrate(ctx, db, dialect))
	// idempotent
	require.NoError(t, Migrate(ctx, db, dialect))

	assert.Equal(t,
		[]string{"config_entries", "identities", "nonce_records", "permission_grants", "projects"},
		tableNames(t, db))

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cloudconfig.db")

	db, dialect, err := Open(ctx, path, "")
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db, dialect))
	_, err = db.Exec(`INSERT INTO projects (id, name, description, created_at) VALUES ('p1', 'billing', '', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, _, err = Open(ctx, "file:"+path, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&n))
	assert.Equal(t, 1, n, "file databases persist across opens")
}

func TestMigrate_Error(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "postgres" {
			return errors.New("unexpected dir")
		}
		return errors.New("boom")
	}
	t.Cleanup(func() { gooseUpContext = orig })

	err := Migrate(context.Background(), nil, dbx.DialectPostgres)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
