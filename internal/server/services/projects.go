package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// ProjectService manages projects.
type ProjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewProjectService(db *sql.DB, m repomanager.RepositoryManager) *ProjectService {
	return &ProjectService{db: db, repomanager: m, now: time.Now}
}

// Create stores a new project. A taken name fails with common.ErrorConflict.
func (s *ProjectService) Create(ctx context.Context, name, description string) (*models.Project, error) {
	name, err := validateName("project", name)
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}
	return s.repomanager.Projects(s.db).Create(ctx, p)
}

func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	if err := ValidateID("project", id); err != nil {
		return nil, err
	}
	return s.repomanager.Projects(s.db).GetByID(ctx, id)
}

func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	return s.repomanager.Projects(s.db).List(ctx)
}

// ListForClient returns the projects clientID can read or write.
func (s *ProjectService) ListForClient(ctx context.Context, clientID string) ([]models.Project, error) {
	return s.repomanager.Projects(s.db).ListForClient(ctx, clientID)
}
