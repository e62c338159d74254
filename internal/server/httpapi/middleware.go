package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/services"
)

type ctxKey string

const (
	identityKey    ctxKey = "identity"
	requestInfoKey ctxKey = "requestInfo"
)

// requestInfo is filled in by inner middleware and read back by the access
// logger once the handler returns.
type requestInfo struct {
	clientID string
}

func identityFrom(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityKey).(*models.Identity)
	return identity
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)))

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if info.clientID != "" {
			args = append(args, "client_id", info.clientID)
		}
		s.logger.Info(r.Context(), "request", args...)
	})
}

// authenticate verifies the signature envelope over the exact request bytes
// and stores the caller's identity in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(ctx, w, s.logger, fmt.Errorf("request body exceeds %d bytes: %w", s.maxBodySize, common.ErrorValidation))
				return
			}
			writeError(ctx, w, s.logger, fmt.Errorf("read request body: %w", common.ErrorValidation))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		identity, err := s.services.Auth.Authenticate(ctx, &services.SignedRequest{
			Method:       r.Method,
			PathAndQuery: requestTarget(r),
			Body:         body,
			ClientID:     r.Header.Get(common.HeaderClientID),
			Timestamp:    r.Header.Get(common.HeaderTimestamp),
			Nonce:        r.Header.Get(common.HeaderNonce),
			Signature:    r.Header.Get(common.HeaderSignature),
		})
		if err != nil {
			var authErr *services.AuthError
			if errors.As(err, &authErr) {
				s.logger.Warn(ctx, "authentication failed",
					"reason", authErr.Reason,
					"detail", authErr.Detail,
					"request_id", middleware.GetReqID(ctx))
			}
			writeError(ctx, w, s.logger, err)
			return
		}

		if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
			info.clientID = identity.ID
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, identityKey, identity)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Access.RequireAdmin(identityFrom(r.Context())); err != nil {
			writeError(r.Context(), w, s.logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestTarget returns the path and query exactly as they appeared on the
// request line. An absolute-form target is cut down to its path and query.
// Requests built in-process carry no RequestURI and fall back to the URL.
func requestTarget(r *http.Request) string {
	target := r.RequestURI
	if target == "" {
		return r.URL.RequestURI()
	}
	if strings.HasPrefix(target, "/") || target == "*" {
		return target
	}

	if i := strings.Index(target, "://"); i >= 0 {
		rest := target[i+len("://"):]
		if j := strings.IndexAny(rest, "/?"); j >= 0 {
			if rest[j] == '?' {
				return "/" + rest[j:]
			}
			return rest[j:]
		}
		return "/"
	}
	return target
}
