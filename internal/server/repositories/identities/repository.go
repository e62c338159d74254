package identities

import (
	"context"

	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	List(ctx context.Context) ([]models.Identity, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}
