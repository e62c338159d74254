// Package identities stores client identities and their public keys.
package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query :=
		`INSERT INTO identities (id, name, public_key, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		identity.ID, identity.Name, identity.PublicKey, identity.IsAdmin, identity.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("identity %s: %w", identity.ID, common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query :=
		`SELECT id, name, public_key, is_admin, created_at FROM identities
		 WHERE id = ?`

	identity := &models.Identity{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id).
		Scan(&identity.ID, &identity.Name, &identity.PublicKey, &identity.IsAdmin, dbx.ScanTime(&identity.CreatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Identity, error) {
	query :=
		`SELECT id, name, public_key, is_admin, created_at FROM identities
		 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Identity{}
	for rows.Next() {
		var i models.Identity
		if err := rows.Scan(&i.ID, &i.Name, &i.PublicKey, &i.IsAdmin, dbx.ScanTime(&i.CreatedAt)); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Count returns the number of identities of any kind.
func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM identities WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
