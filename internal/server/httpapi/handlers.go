package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/services"
)

type createClientRequest struct {
	Name string `json:"name"`
}

type createdClientResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	Fingerprint   string    `json:"fingerprint"`
	PrivateKeyPEM string    `json:"private_key_pem"`
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type adminConfigRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type configValueRequest struct {
	Value string `json:"value"`
}

type grantRequest struct {
	ProjectID string `json:"project_id"`
	CanRead   bool   `json:"can_read"`
	CanWrite  bool   `json:"can_write"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	created, err := s.services.Identities.Create(r.Context(), req.Name)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	resp := createdClientResponse{
		ID:            created.Identity.ID,
		Name:          created.Identity.Name,
		IsAdmin:       created.Identity.IsAdmin,
		CreatedAt:     created.Identity.CreatedAt,
		Fingerprint:   created.Fingerprint,
		PrivateKeyPEM: string(created.PrivateKeyPEM),
	}
	common.WipeByteArray(created.PrivateKeyPEM)

	s.logger.Info(r.Context(), "client created", "client_id", resp.ID, "fingerprint", resp.Fingerprint)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Identities.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	actor := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.services.Identities.Delete(r.Context(), actor.ID, id); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	s.logger.Info(r.Context(), "client deleted", "target_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) grantPermission(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	grant, err := s.services.Permissions.Grant(r.Context(), chi.URLParam(r, "id"), req.ProjectID, req.CanRead, req.CanWrite)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Permissions.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) revokePermission(w http.ResponseWriter, r *http.Request) {
	err := s.services.Permissions.Revoke(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	project, err := s.services.Projects.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Projects.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) adminSetConfig(w http.ResponseWriter, r *http.Request) {
	var req adminConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.setConfig(w, r, chi.URLParam(r, "id"), req.Key, req.Value)
}

func (s *Server) adminListConfigs(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Configs.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.services.Snapshots.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.logger.Info(r.Context(), "snapshot exported", "key", snap.Key, "entries", snap.Entries)
	writeJSON(w, http.StatusCreated, snap)
}

// listVisibleProjects returns every project for administrators and the
// granted ones for everybody else.
func (s *Server) listVisibleProjects(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var (
		list []models.Project
		err  error
	)
	if identity.IsAdmin {
		list, err = s.services.Projects.List(r.Context())
	} else {
		list, err = s.services.Projects.ListForClient(r.Context(), identity.ID)
	}
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.authorizeProject(w, r, services.AccessRead)
	if !ok {
		return
	}

	list, err := s.services.Configs.List(r.Context(), projectID)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.authorizeProject(w, r, services.AccessRead)
	if !ok {
		return
	}
	key, err := configKeyParam(r)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	entry, err := s.services.Configs.Get(r.Context(), projectID, key)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.authorizeProject(w, r, services.AccessWrite)
	if !ok {
		return
	}
	key, err := configKeyParam(r)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	var req configValueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.setConfig(w, r, projectID, key, req.Value)
}

func (s *Server) setConfig(w http.ResponseWriter, r *http.Request, projectID, key, value string) {
	entry, err := s.services.Configs.Set(r.Context(), projectID, key, value)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.logger.Info(r.Context(), "config written",
		"project_id", entry.ProjectID, "key", entry.Key, "version", entry.Version)
	writeJSON(w, http.StatusOK, entry)
}

// authorizeProject validates the {id} parameter and checks the caller's
// grant on it. On failure the response has already been written.
func (s *Server) authorizeProject(w http.ResponseWriter, r *http.Request, access services.Access) (string, bool) {
	projectID := chi.URLParam(r, "id")
	if err := services.ValidateID("project", projectID); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return "", false
	}
	if err := s.services.Access.RequireProject(r.Context(), identityFrom(r.Context()), projectID, access); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return "", false
	}
	return projectID, true
}

// configKeyParam returns the decoded {key} segment. chi matches on the raw
// path when the request had escaped characters, so the segment may still be
// percent-encoded.
func configKeyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return key, nil
	}
	decoded, err := url.PathUnescape(key)
	if err != nil {
		return "", fmt.Errorf("malformed config key: %w", common.ErrorValidation)
	}
	return decoded, nil
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
