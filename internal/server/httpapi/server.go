// Package httpapi exposes CloudConfig over HTTP. Every route except the
// health probe requires a signed request.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/cloudconfig/internal/logging"
	"github.com/dmitrijs2005/cloudconfig/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Services bundles the business logic the handlers call. Snapshots may be
// nil, in which case the snapshot route is not mounted.
type Services struct {
	Auth        *services.Authenticator
	Access      *services.Resolver
	Identities  *services.IdentityService
	Projects    *services.ProjectService
	Configs     *services.ConfigService
	Permissions *services.PermissionService
	Snapshots   *services.SnapshotService
}

type Options struct {
	Address        string
	MaxBodySize    int64
	RequestTimeout time.Duration
}

type Server struct {
	address        string
	maxBodySize    int64
	requestTimeout time.Duration
	services       *Services
	logger         logging.Logger
	router         chi.Router
}

func NewServer(opts Options, l logging.Logger, svc *Services) *Server {
	s := &Server{
		address:        opts.Address,
		maxBodySize:    opts.MaxBodySize,
		requestTimeout: opts.RequestTimeout,
		services:       svc,
		logger:         l.With("module", "http_server"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}

	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Post("/clients", s.createClient)
			r.Get("/clients", s.listClients)
			r.Delete("/clients/{id}", s.deleteClient)
			r.Post("/clients/{id}/permissions", s.grantPermission)
			r.Get("/clients/{id}/permissions", s.listPermissions)
			r.Delete("/clients/{id}/permissions/{projectID}", s.revokePermission)

			r.Post("/projects", s.createProject)
			r.Get("/projects", s.listProjects)
			r.Post("/projects/{id}/configs", s.adminSetConfig)
			r.Get("/projects/{id}/configs", s.adminListConfigs)
			if s.services.Snapshots != nil {
				r.Post("/projects/{id}/snapshots", s.exportSnapshot)
			}
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/projects", s.listVisibleProjects)
			r.Get("/projects/{id}/configs", s.listConfigs)
			r.Get("/projects/{id}/configs/{key}", s.getConfig)
			r.Put("/projects/{id}/configs/{key}", s.putConfig)
		})
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
