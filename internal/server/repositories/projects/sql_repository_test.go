package projects

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
	"github.com/dmitrijs2005/cloudconfig/internal/server/database"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, dbx.DialectPostgres), mock
}

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := database.OpenAndMigrate(context.Background(), database.MemoryURL, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCreate_Query(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+projects\s*\(id,\s*name,\s*description,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)$`
	mock.ExpectExec(q).
		WithArgs("p1", "billing", "invoices", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Create(context.Background(), &models.Project{ID: "p1", Name: "billing", Description: "invoices", CreatedAt: created})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM projects`).WithArgs("p1").WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, err.Error(), "db error")
}

func TestListForClient_Query(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)JOIN\s+permission_grants\s+g\s+ON\s+g\.project_id\s*=\s*p\.id\s+WHERE\s+g\.client_id\s*=\s*\$1\s+AND\s+\(g\.can_read\s+OR\s+g\.can_write\)`
	rows := sqlmock.NewRows([]string{"id", "name", "description", "created_at"}).
		AddRow("p1", "billing", "", created)
	mock.ExpectQuery(q).WithArgs("c1").WillReturnRows(rows)

	got, err := repo.ListForClient(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []models.Project{{ID: "p1", Name: "billing", CreatedAt: created}}, got)
}

func TestSQLite_DuplicateNameConflicts(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewSQLRepository(db, dbx.DialectSQLite)

	_, err := repo.Create(ctx, &models.Project{ID: "p1", Name: "billing", CreatedAt: created})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.Project{ID: "p2", Name: "billing", CreatedAt: created})
	assert.ErrorIs(t, err, common.ErrorConflict)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM projects WHERE name = 'billing'`).Scan(&n))
	assert.Equal(t, 1, n, "no second row")
}

func TestSQLite_ListAndGrants(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewSQLRepository(db, dbx.DialectSQLite)

	for _, p := range []models.Project{
		{ID: "p1", Name: "zeta", CreatedAt: created},
		{ID: "p2", Name: "alpha", Description: "first", CreatedAt: created},
		{ID: "p3", Name: "mid", CreatedAt: created},
	} {
		_, err := repo.Create(ctx, &p)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{all[0].Name, all[1].Name, all[2].Name})

	_, err = db.Exec(`INSERT INTO identities (id, name, public_key, is_admin, created_at) VALUES ('c1', 'ci', x'00', 0, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO permission_grants (client_id, project_id, can_read, can_write) VALUES ('c1', 'p1', 1, 0), ('c1', 'p3', 0, 0)`)
	require.NoError(t, err)

	mine, err := repo.ListForClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, mine, 1, "grants with both flags off do not count")
	assert.Equal(t, "p1", mine[0].ID)

	got, err := repo.GetByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Description)
	assert.True(t, got.CreatedAt.Equal(created))

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
