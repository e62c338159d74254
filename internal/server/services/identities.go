package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/cryptox"
	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// NewIdentity is a freshly minted identity together with its private key.
// The key is handed out once and never stored.
type NewIdentity struct {
	Identity      *models.Identity
	PrivateKeyPEM []byte
	Fingerprint   string
}

// IdentityService manages client identities.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager) *IdentityService {
	return &IdentityService{db: db, repomanager: m, now: time.Now}
}

// Create mints a keypair and stores a standard identity under name.
func (s *IdentityService) Create(ctx context.Context, name string) (*NewIdentity, error) {
	name, err := validateName("client", name)
	if err != nil {
		return nil, err
	}
	return mintIdentity(ctx, s.repomanager, s.db, name, false, s.now())
}

func (s *IdentityService) List(ctx context.Context) ([]models.Identity, error) {
	return s.repomanager.Identities(s.db).List(ctx)
}

// Delete removes targetID and its grants in one transaction. An identity
// may not delete itself. Nonce records are left in place.
func (s *IdentityService) Delete(ctx context.Context, actorID, targetID string) error {
	if err := ValidateID("client", targetID); err != nil {
		return err
	}
	if actorID == targetID {
		return fmt.Errorf("identity cannot delete itself: %w", common.ErrorConflict)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Permissions(tx).DeleteByClient(ctx, targetID); err != nil {
			return err
		}
		return s.repomanager.Identities(tx).Delete(ctx, targetID)
	})
}

// Exists fails with common.ErrorNotFound when id is unknown.
func (s *IdentityService) Exists(ctx context.Context, id string) error {
	if err := ValidateID("client", id); err != nil {
		return err
	}
	_, err := s.repomanager.Identities(s.db).GetByID(ctx, id)
	return err
}

func mintIdentity(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, name string, admin bool, now time.Time) (*NewIdentity, error) {
	kp, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	fp, err := cryptox.Fingerprint(kp.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	identity := &models.Identity{
		ID:        uuid.NewString(),
		Name:      name,
		PublicKey: kp.PublicKey,
		IsAdmin:   admin,
		CreatedAt: now.UTC(),
	}

	created, err := m.Identities(db).Create(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &NewIdentity{Identity: created, PrivateKeyPEM: kp.PrivateKeyPEM, Fingerprint: fp}, nil
}
