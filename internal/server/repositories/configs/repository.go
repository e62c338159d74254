package configs

import (
	"context"

	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, entry *models.ConfigEntry) (*models.ConfigEntry, error)
	Get(ctx context.Context, projectID, key string) (*models.ConfigEntry, error)
	List(ctx context.Context, projectID string) ([]models.ConfigEntry, error)
}
