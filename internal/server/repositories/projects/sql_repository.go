// Package projects stores projects. Names are unique.
package projects

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

// Create inserts project. A taken name yields common.ErrorConflict.
func (r *SQLRepository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	query :=
		`INSERT INTO projects (id, name, description, created_at)
		 VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		project.ID, project.Name, project.Description, project.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("project %q: %w", project.Name, common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return project, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query :=
		`SELECT id, name, description, created_at FROM projects
		 WHERE id = ?`

	p := &models.Project{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id).
		Scan(&p.ID, &p.Name, &p.Description, dbx.ScanTime(&p.CreatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Project, error) {
	query :=
		`SELECT id, name, description, created_at FROM projects
		 ORDER BY name`

	return r.query(ctx, query)
}

// ListForClient returns the projects on which clientID holds a read or
// write grant.
func (r *SQLRepository) ListForClient(ctx context.Context, clientID string) ([]models.Project, error) {
	query :=
		`SELECT p.id, p.name, p.description, p.created_at
		 FROM projects p
		 JOIN permission_grants g ON g.project_id = p.id
		 WHERE g.client_id = ? AND (g.can_read OR g.can_write)
		 ORDER BY p.name`

	return r.query(ctx, r.dialect.Rebind(query), clientID)
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, dbx.ScanTime(&p.CreatedAt)); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
