package projects

import (
	"context"

	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	ListForClient(ctx context.Context, clientID string) ([]models.Project, error)
}
