package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// ConfigService reads and writes versioned config entries. Values are JSON
// text, checked for syntax and otherwise stored verbatim.
type ConfigService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewConfigService(db *sql.DB, m repomanager.RepositoryManager) *ConfigService {
	return &ConfigService{db: db, repomanager: m, now: time.Now}
}

// Set validates value and writes it under (projectID, key). The first write
// of a key yields version 1, each later write the next version. Nothing is
// written when validation fails.
func (s *ConfigService) Set(ctx context.Context, projectID, key, value string) (*models.ConfigEntry, error) {
	if err := ValidateID("project", projectID); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf("value is not valid JSON: %w", common.ErrorValidation)
	}

	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	entry := &models.ConfigEntry{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}
	return s.repomanager.Configs(s.db).Upsert(ctx, entry)
}

func (s *ConfigService) Get(ctx context.Context, projectID, key string) (*models.ConfigEntry, error) {
	if err := ValidateID("project", projectID); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return s.repomanager.Configs(s.db).Get(ctx, projectID, key)
}

// List returns the project's entries ordered by key. An unknown project
// fails with common.ErrorNotFound.
func (s *ConfigService) List(ctx context.Context, projectID string) ([]models.ConfigEntry, error) {
	if err := ValidateID("project", projectID); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repomanager.Configs(s.db).List(ctx, projectID)
}
