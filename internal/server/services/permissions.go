package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// PermissionService manages grants.
type PermissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPermissionService(db *sql.DB, m repomanager.RepositoryManager) *PermissionService {
	return &PermissionService{db: db, repomanager: m}
}

// Grant replaces the grant of clientID on projectID. canWrite forces
// canRead, so a write-only grant is never stored. Both the identity and the
// project must exist.
func (s *PermissionService) Grant(ctx context.Context, clientID, projectID string, canRead, canWrite bool) (*models.Permission, error) {
	if err := ValidateID("client", clientID); err != nil {
		return nil, err
	}
	if err := ValidateID("project", projectID); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Identities(s.db).GetByID(ctx, clientID); err != nil {
		return nil, fmt.Errorf("client %s: %w", clientID, err)
	}
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}

	return s.repomanager.Permissions(s.db).Upsert(ctx, &models.Permission{
		ClientID:  clientID,
		ProjectID: projectID,
		CanRead:   canRead || canWrite,
		CanWrite:  canWrite,
	})
}

// Revoke deletes the grant row. A missing row fails with
// common.ErrorNotFound.
func (s *PermissionService) Revoke(ctx context.Context, clientID, projectID string) error {
	if err := ValidateID("client", clientID); err != nil {
		return err
	}
	if err := ValidateID("project", projectID); err != nil {
		return err
	}
	return s.repomanager.Permissions(s.db).Delete(ctx, clientID, projectID)
}

// List returns the grants held by clientID.
func (s *PermissionService) List(ctx context.Context, clientID string) ([]models.Permission, error) {
	if err := ValidateID("client", clientID); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Identities(s.db).GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repomanager.Permissions(s.db).ListByClient(ctx, clientID)
}
