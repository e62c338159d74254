// Package services contains server-side business logic: request
// authentication, access checks, identity, project, config and permission
// management, bootstrap, snapshots and nonce pruning.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/cryptox"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/nonces"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// Internal reasons for an authentication failure. They are logged, never
// returned to the caller.
const (
	ReasonMissingHeader    = "missing header"
	ReasonMalformedHeader  = "malformed header"
	ReasonClockDrift       = "timestamp outside drift window"
	ReasonUnknownIdentity  = "unknown identity"
	ReasonInvalidSignature = "invalid signature"
	ReasonReplay           = "nonce replay"
)

// AuthError is an authentication failure. It matches common.ErrorUnauthorized
// under errors.Is; Reason says which check failed.
type AuthError struct {
	Reason string
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return "unauthorized: " + e.Reason
	}
	return "unauthorized: " + e.Reason + ": " + e.Detail
}

func (e *AuthError) Unwrap() error {
	return common.ErrorUnauthorized
}

func authFailure(reason, detail string) error {
	return &AuthError{Reason: reason, Detail: detail}
}

// SignedRequest is what the transport hands to the Authenticator: the raw
// header values and the exact request bytes.
type SignedRequest struct {
	Method       string
	PathAndQuery string
	Body         []byte
	ClientID     string
	Timestamp    string
	Nonce        string
	Signature    string
}

// ReplayGuard rejects stale timestamps and reused nonces.
type ReplayGuard struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	maxDrift    time.Duration
	now         func() time.Time
}

func NewReplayGuard(db *sql.DB, m repomanager.RepositoryManager, maxDrift time.Duration) *ReplayGuard {
	return &ReplayGuard{db: db, repomanager: m, maxDrift: maxDrift, now: time.Now}
}

// CheckDrift accepts ts when |now - ts| <= maxDrift. It never touches storage.
func (g *ReplayGuard) CheckDrift(ts int64) error {
	now := g.now().Unix()
	window := int64(g.maxDrift / time.Second)

	// compare against the window bounds, ts - now can overflow
	if ts < now-window || ts > now+window {
		return authFailure(ReasonClockDrift, fmt.Sprintf("timestamp %d, server time %d", ts, now))
	}
	return nil
}

// Remember records (clientID, nonce) with a single unique insert. A second
// use of the pair, concurrent or not, fails as a replay.
func (g *ReplayGuard) Remember(ctx context.Context, clientID, nonce string) error {
	err := g.repomanager.Nonces(g.db).Insert(ctx, clientID, nonce, g.now())
	if err != nil {
		if errors.Is(err, nonces.ErrReplay) {
			return authFailure(ReasonReplay, "")
		}
		return fmt.Errorf("record nonce: %w", err)
	}
	return nil
}

// Authenticator runs the signed request pipeline. Each step short-circuits:
// header parsing, drift check, identity lookup and signature verification,
// then nonce registration. Nothing is written unless the signature is valid.
type Authenticator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       *ReplayGuard
}

func NewAuthenticator(db *sql.DB, m repomanager.RepositoryManager, guard *ReplayGuard) *Authenticator {
	return &Authenticator{db: db, repomanager: m, guard: guard}
}

// Authenticate returns the identity that signed req. Every rejection wraps
// common.ErrorUnauthorized as an *AuthError; storage failures are returned
// as plain errors.
func (a *Authenticator) Authenticate(ctx context.Context, req *SignedRequest) (*models.Identity, error) {
	ts, err := parseEnvelope(req)
	if err != nil {
		return nil, err
	}

	if err := a.guard.CheckDrift(ts); err != nil {
		return nil, err
	}

	identity, err := a.repomanager.Identities(a.db).GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, authFailure(ReasonUnknownIdentity, req.ClientID)
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	canonical := cryptox.CanonicalString(ts, req.Method, req.PathAndQuery, req.Nonce, req.Body)
	if err := cryptox.Verify(identity.PublicKey, canonical, req.Signature); err != nil {
		return nil, authFailure(ReasonInvalidSignature, err.Error())
	}

	if err := a.guard.Remember(ctx, identity.ID, req.Nonce); err != nil {
		return nil, err
	}

	return identity, nil
}

func parseEnvelope(req *SignedRequest) (int64, error) {
	switch {
	case req.ClientID == "":
		return 0, authFailure(ReasonMissingHeader, common.HeaderClientID)
	case req.Timestamp == "":
		return 0, authFailure(ReasonMissingHeader, common.HeaderTimestamp)
	case req.Nonce == "":
		return 0, authFailure(ReasonMissingHeader, common.HeaderNonce)
	case req.Signature == "":
		return 0, authFailure(ReasonMissingHeader, common.HeaderSignature)
	}

	// the signature covers the canonical decimal form, so only that form is accepted
	ts, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil || strconv.FormatInt(ts, 10) != req.Timestamp {
		return 0, authFailure(ReasonMalformedHeader, common.HeaderTimestamp)
	}

	n := utf8.RuneCountInString(req.Nonce)
	if n < common.MinNonceLength || n > common.MaxNonceLength {
		return 0, authFailure(ReasonMalformedHeader, common.HeaderNonce)
	}

	return ts, nil
}
