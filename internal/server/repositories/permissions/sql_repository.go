// Package permissions stores per-project read/write grants.
package permissions

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

// Upsert replaces the whole grant row. Write access always carries read
// access; the stored row is returned.
func (r *SQLRepository) Upsert(ctx context.Context, p *models.Permission) (*models.Permission, error) {
	query :=
		`INSERT INTO permission_grants (client_id, project_id, can_read, can_write)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (client_id, project_id) DO UPDATE
		 SET can_read = excluded.can_read,
		     can_write = excluded.can_write`

	out := *p
	out.CanRead = p.CanRead || p.CanWrite

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), out.ClientID, out.ProjectID, out.CanRead, out.CanWrite)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &out, nil
}

func (r *SQLRepository) Get(ctx context.Context, clientID, projectID string) (*models.Permission, error) {
	query :=
		`SELECT client_id, project_id, can_read, can_write FROM permission_grants
		 WHERE client_id = ? AND project_id = ?`

	p := &models.Permission{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), clientID, projectID).
		Scan(&p.ClientID, &p.ProjectID, &p.CanRead, &p.CanWrite)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *SQLRepository) ListByClient(ctx context.Context, clientID string) ([]models.Permission, error) {
	query :=
		`SELECT client_id, project_id, can_read, can_write FROM permission_grants
		 WHERE client_id = ?
		 ORDER BY project_id`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), clientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Permission{}
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ClientID, &p.ProjectID, &p.CanRead, &p.CanWrite); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Delete removes one grant. A missing row yields common.ErrorNotFound.
func (r *SQLRepository) Delete(ctx context.Context, clientID, projectID string) error {
	query := `DELETE FROM permission_grants WHERE client_id = ? AND project_id = ?`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), clientID, projectID)
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

// DeleteByClient removes every grant held by clientID.
func (r *SQLRepository) DeleteByClient(ctx context.Context, clientID string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM permission_grants WHERE client_id = ?`), clientID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
