package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ed25519"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/cryptox"
	"github.com/dmitrijs2005/cloudconfig/internal/logging"
	sc "github.com/dmitrijs2005/cloudconfig/internal/server/config"
	"github.com/dmitrijs2005/cloudconfig/internal/server/database"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cloudconfig/internal/server/services"
)

const testMaxBody = 4096

type testEnv struct {
	t      *testing.T
	db     *sql.DB
	m      repomanager.RepositoryManager
	svc    *Services
	server *httptest.Server
	admin  *testClient
}

type testClient struct {
	id  string
	key ed25519.PrivateKey
}

type envOption func(*Services, *sql.DB, repomanager.RepositoryManager)

func withSnapshots(cfg *sc.Config) envOption {
	return func(svc *Services, db *sql.DB, m repomanager.RepositoryManager) {
		svc.Snapshots = services.NewSnapshotService(db, m, cfg)
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, dialect, err := database.OpenAndMigrate(context.Background(), database.MemoryURL, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	m := repomanager.NewRepositoryManager(dialect)

	svc := &Services{
		Auth:        services.NewAuthenticator(db, m, services.NewReplayGuard(db, m, 300*time.Second)),
		Access:      services.NewResolver(db, m),
		Identities:  services.NewIdentityService(db, m),
		Projects:    services.NewProjectService(db, m),
		Configs:     services.NewConfigService(db, m),
		Permissions: services.NewPermissionService(db, m),
	}
	for _, o := range opts {
		o(svc, db, m)
	}

	s := NewServer(Options{MaxBodySize: testMaxBody, RequestTimeout: 5 * time.Second}, logging.Discard(), svc)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	env := &testEnv{t: t, db: db, m: m, svc: svc, server: ts}

	// the provisioner wipes the key after printing it, so read it back
	// from the output
	var out bytes.Buffer
	p := services.NewProvisioner(db, m, &out, logging.Discard())
	created, err := p.MintAdmin(context.Background(), "root")
	require.NoError(t, err)
	printed := out.Bytes()
	start := bytes.Index(printed, []byte("-----BEGIN"))
	require.GreaterOrEqual(t, start, 0, out.String())
	env.admin = clientFromPEM(t, created.Identity.ID, printed[start:])

	return env
}

func clientFromPEM(t *testing.T, id string, pem []byte) *testClient {
	t.Helper()
	key, err := cryptox.ParsePrivateKey(pem)
	require.NoError(t, err)
	return &testClient{id: id, key: key}
}

// newClient creates a standard identity directly through the service layer.
func (e *testEnv) newClient(name string) *testClient {
	e.t.Helper()
	created, err := e.svc.Identities.Create(context.Background(), name)
	require.NoError(e.t, err)
	return clientFromPEM(e.t, created.Identity.ID, created.PrivateKeyPEM)
}

func (e *testEnv) newProject(name string) *models.Project {
	e.t.Helper()
	p, err := e.svc.Projects.Create(context.Background(), name, "")
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) grant(c *testClient, projectID string, canRead, canWrite bool) {
	e.t.Helper()
	_, err := e.svc.Permissions.Grant(context.Background(), c.id, projectID, canRead, canWrite)
	require.NoError(e.t, err)
}

func encodeBody(t *testing.T, body any) []byte {
	t.Helper()
	switch b := body.(type) {
	case nil:
		return nil
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		out, err := json.Marshal(b)
		require.NoError(t, err)
		return out
	}
}

// signedRequest builds a request signed by c at ts with nonce.
func (e *testEnv) signedRequest(c *testClient, method, path string, body any, ts int64, nonce string) *http.Request {
	e.t.Helper()
	raw := encodeBody(e.t, body)

	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(raw))
	require.NoError(e.t, err)

	canonical := cryptox.CanonicalString(ts, method, req.URL.RequestURI(), nonce, raw)
	req.Header.Set(common.HeaderClientID, c.id)
	req.Header.Set(common.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(common.HeaderNonce, nonce)
	req.Header.Set(common.HeaderSignature, cryptox.Sign(c.key, canonical))
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (e *testEnv) send(req *http.Request) (int, []byte) {
	e.t.Helper()
	resp, err := e.server.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, data
}

// do sends a freshly signed request.
func (e *testEnv) do(c *testClient, method, path string, body any) (int, []byte) {
	e.t.Helper()
	return e.send(e.signedRequest(c, method, path, body, time.Now().Unix(), uuid.NewString()))
}

// doRaw writes target onto the request line byte for byte, signing the same
// bytes, so no client-side URL normalization takes place.
func (e *testEnv) doRaw(c *testClient, method, target string, body []byte) (int, []byte) {
	e.t.Helper()

	conn, err := net.Dial("tcp", e.server.Listener.Addr().String())
	require.NoError(e.t, err)
	defer conn.Close()

	ts := time.Now().Unix()
	nonce := uuid.NewString()
	canonical := cryptox.CanonicalString(ts, method, target, nonce, body)

	var head bytes.Buffer
	fmt.Fprintf(&head, "%s %s HTTP/1.1\r\n", method, target)
	fmt.Fprintf(&head, "Host: %s\r\nConnection: close\r\n", e.server.Listener.Addr())
	fmt.Fprintf(&head, "%s: %s\r\n", common.HeaderClientID, c.id)
	fmt.Fprintf(&head, "%s: %d\r\n", common.HeaderTimestamp, ts)
	fmt.Fprintf(&head, "%s: %s\r\n", common.HeaderNonce, nonce)
	fmt.Fprintf(&head, "%s: %s\r\n", common.HeaderSignature, cryptox.Sign(c.key, canonical))
	fmt.Fprintf(&head, "Content-Length: %d\r\n\r\n", len(body))

	_, err = conn.Write(append(head.Bytes(), body...))
	require.NoError(e.t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, data
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func errorMessage(t *testing.T, data []byte) string {
	t.Helper()
	return decodeInto[errorResponse](t, data).Error
}
