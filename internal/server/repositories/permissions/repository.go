package permissions

import (
	"context"

	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, p *models.Permission) (*models.Permission, error)
	Get(ctx context.Context, clientID, projectID string) (*models.Permission, error)
	ListByClient(ctx context.Context, clientID string) ([]models.Permission, error)
	Delete(ctx context.Context, clientID, projectID string) error
	DeleteByClient(ctx context.Context, clientID string) error
}
