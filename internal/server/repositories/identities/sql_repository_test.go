package identities

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
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

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db, dbx.DialectPostgres), mock, db
}

func newSQLiteRepo(t *testing.T) *SQLRepository {
	t.Helper()
	db, dialect, err := database.OpenAndMigrate(context.Background(), database.MemoryURL, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, dialect)
}

func sample(id string, admin bool) *models.Identity {
	return &models.Identity{
		ID:        id,
		Name:      "client " + id,
		PublicKey: []byte("0123456789abcdef0123456789abcdef"),
		IsAdmin:   admin,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+identities\s*\(id,\s*name,\s*public_key,\s*is_admin,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`

	i := sample("c1", true)
	mock.ExpectExec(q).
		WithArgs(i.ID, i.Name, i.PublicKey, true, i.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), i)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO identities`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), sample("c1", false))
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,\s*public_key,\s*is_admin,\s*created_at\s+FROM\s+identities\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "public_key", "is_admin", "created_at"}).
		AddRow("c1", "ci", []byte("key"), false, created)
	mock.ExpectQuery(`SELECT id, name, public_key, is_admin, created_at FROM identities`).
		WithArgs("c1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{ID: "c1", Name: "ci", PublicKey: []byte("key"), CreatedAt: created}, got)
}

func TestCount_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM identities`).WillReturnError(errors.New("db err"))

	_, err := repo.Count(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+identities\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.Create(ctx, sample("a", true))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sample("b", false))
	require.NoError(t, err)

	_, err = repo.Create(ctx, sample("a", false))
	assert.ErrorIs(t, err, common.ErrorConflict)

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), got.PublicKey)
	assert.True(t, got.CreatedAt.Equal(sample("a", true).CreatedAt))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Delete(ctx, "b"))
	assert.ErrorIs(t, repo.Delete(ctx, "b"), common.ErrorNotFound)

	_, err = repo.GetByID(ctx, "b")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
