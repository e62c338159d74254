package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// Access is the level an operation needs on a project.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
)

func (a Access) String() string {
	if a == AccessWrite {
		return "write"
	}
	return "read"
}

// Resolver decides whether an authenticated identity may perform an
// operation. Administrators pass every project check without a grant.
type Resolver struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewResolver(db *sql.DB, m repomanager.RepositoryManager) *Resolver {
	return &Resolver{db: db, repomanager: m}
}

// RequireAdmin fails with common.ErrorForbidden unless identity is an
// administrator.
func (r *Resolver) RequireAdmin(identity *models.Identity) error {
	if identity == nil || !identity.IsAdmin {
		return fmt.Errorf("administrator required: %w", common.ErrorForbidden)
	}
	return nil
}

// RequireProject checks that identity holds at least the given access on
// projectID. A missing grant row is forbidden, as is a row without the flag.
func (r *Resolver) RequireProject(ctx context.Context, identity *models.Identity, projectID string, access Access) error {
	if identity == nil {
		return common.ErrorUnauthorized
	}
	if identity.IsAdmin {
		return nil
	}

	grant, err := r.repomanager.Permissions(r.db).Get(ctx, identity.ID, projectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("no grant on project %s: %w", projectID, common.ErrorForbidden)
		}
		return fmt.Errorf("load grant: %w", err)
	}

	allowed := grant.CanRead
	if access == AccessWrite {
		allowed = grant.CanWrite
	}
	if !allowed {
		return fmt.Errorf("%s not granted on project %s: %w", access, projectID, common.ErrorForbidden)
	}

	return nil
}
