package services

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cloudconfig/internal/cryptox"
	"github.com/dmitrijs2005/cloudconfig/internal/server/database"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

func newTestStore(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	db, dialect, err := database.OpenAndMigrate(context.Background(), database.MemoryURL, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, repomanager.NewRepositoryManager(dialect)
}

type testClient struct {
	identity *models.Identity
	key      ed25519.PrivateKey
}

func addClient(t *testing.T, db *sql.DB, m repomanager.RepositoryManager, name string, admin bool) *testClient {
	t.Helper()
	created, err := mintIdentity(context.Background(), m, db, name, admin, time.Now())
	require.NoError(t, err)

	key, err := cryptox.ParsePrivateKey(created.PrivateKeyPEM)
	require.NoError(t, err)

	return &testClient{identity: created.Identity, key: key}
}

func addProject(t *testing.T, db *sql.DB, m repomanager.RepositoryManager, name string) *models.Project {
	t.Helper()
	p, err := m.Projects(db).Create(context.Background(), &models.Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return p
}

func (c *testClient) sign(ts int64, method, pathAndQuery, nonce string, body []byte) *SignedRequest {
	canonical := cryptox.CanonicalString(ts, method, pathAndQuery, nonce, body)
	return &SignedRequest{
		Method:       method,
		PathAndQuery: pathAndQuery,
		Body:         body,
		ClientID:     c.identity.ID,
		Timestamp:    strconv.FormatInt(ts, 10),
		Nonce:        nonce,
		Signature:    cryptox.Sign(c.key, canonical),
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
