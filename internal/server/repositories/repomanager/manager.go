// Package repomanager vends the SQL repository implementations bound to a
// connection or transaction, and runs schema migrations for the dialect.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
	"github.com/dmitrijs2005/cloudconfig/internal/server/database"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/configs"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/identities"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/nonces"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/projects"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Projects(db dbx.DBTX) projects.Repository
	Configs(db dbx.DBTX) configs.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Nonces(db dbx.DBTX) nonces.Repository
}

// SQLRepositoryManager builds repositories for one SQL dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// NewRepositoryManager constructs a RepositoryManager for dialect.
func NewRepositoryManager(dialect dbx.Dialect) RepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

// RunMigrations applies the embedded migrations for the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return database.Migrate(ctx, db, m.dialect)
}

func (m *SQLRepositoryManager) Identities(db dbx.DBTX) identities.Repository {
	return identities.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Configs(db dbx.DBTX) configs.Repository {
	return configs.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Permissions(db dbx.DBTX) permissions.Repository {
	return permissions.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Nonces(db dbx.DBTX) nonces.Repository {
	return nonces.NewSQLRepository(db, m.dialect)
}
