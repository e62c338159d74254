// Package configs stores versioned config entries.
package configs

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

// Upsert writes entry.Value under (entry.ProjectID, entry.Key) in a single
// statement. A new key starts at version 1; an existing key keeps its id and
// its version is incremented by the database, so concurrent writers never
// observe or produce the same version. entry.ID is used only on insert.
//
// The returned entry carries the stored id and the new version.
func (r *SQLRepository) Upsert(ctx context.Context, entry *models.ConfigEntry) (*models.ConfigEntry, error) {
	query :=
		`INSERT INTO config_entries (id, project_id, config_key, value, version, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT (project_id, config_key) DO UPDATE
		 SET value = excluded.value,
		     version = config_entries.version + 1,
		     updated_at = excluded.updated_at
		 RETURNING id, version`

	out := *entry
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		entry.ID, entry.ProjectID, entry.Key, entry.Value, entry.UpdatedAt).
		Scan(&out.ID, &out.Version)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &out, nil
}

func (r *SQLRepository) Get(ctx context.Context, projectID, key string) (*models.ConfigEntry, error) {
	query :=
		`SELECT id, project_id, config_key, value, version, updated_at FROM config_entries
		 WHERE project_id = ? AND config_key = ?`

	e := &models.ConfigEntry{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), projectID, key).
		Scan(&e.ID, &e.ProjectID, &e.Key, &e.Value, &e.Version, dbx.ScanTime(&e.UpdatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

// List returns every entry of projectID ordered by key.
func (r *SQLRepository) List(ctx context.Context, projectID string) ([]models.ConfigEntry, error) {
	query :=
		`SELECT id, project_id, config_key, value, version, updated_at FROM config_entries
		 WHERE project_id = ?
		 ORDER BY config_key`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.ConfigEntry{}
	for rows.Next() {
		var e models.ConfigEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Key, &e.Value, &e.Version, dbx.ScanTime(&e.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
