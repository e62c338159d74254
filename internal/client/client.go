// Package client is a Go SDK for the CloudConfig HTTP API. Requests are
// signed the same way the server verifies them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
)

// Error is a non-2xx answer from the server. It unwraps to the matching
// sentinel in package common, so callers can use errors.Is or common.KindOf.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case http.StatusForbidden:
		return common.ErrorForbidden
	case http.StatusBadRequest:
		return common.ErrorValidation
	case http.StatusConflict:
		return common.ErrorConflict
	case http.StatusNotFound:
		return common.ErrorNotFound
	default:
		return common.ErrorInternal
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func New(baseURL string, signer *Signer, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		signer:     signer,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Health probes GET /health without signing.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, false)
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out, true)
	return out, err
}

func (c *Client) ListConfigs(ctx context.Context, projectID string) ([]ConfigEntry, error) {
	var out []ConfigEntry
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID)+"/configs", nil, &out, true)
	return out, err
}

func (c *Client) GetConfig(ctx context.Context, projectID, key string) (*ConfigEntry, error) {
	var out ConfigEntry
	if err := c.do(ctx, http.MethodGet, configPath(projectID, key), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutConfig writes value, which must be JSON text, and returns the new entry.
func (c *Client) PutConfig(ctx context.Context, projectID, key, value string) (*ConfigEntry, error) {
	var out ConfigEntry
	if err := c.do(ctx, http.MethodPut, configPath(projectID, key), map[string]string{"value": value}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateClient(ctx context.Context, name string) (*CreatedClient, error) {
	var out CreatedClient
	if err := c.do(ctx, http.MethodPost, "/admin/clients", map[string]string{"name": name}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListClients(ctx context.Context) ([]Identity, error) {
	var out []Identity
	err := c.do(ctx, http.MethodGet, "/admin/clients", nil, &out, true)
	return out, err
}

func (c *Client) DeleteClient(ctx context.Context, clientID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/clients/"+url.PathEscape(clientID), nil, nil, true)
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (*Project, error) {
	var out Project
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPost, "/admin/projects", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := c.do(ctx, http.MethodGet, "/admin/projects", nil, &out, true)
	return out, err
}

func (c *Client) AdminSetConfig(ctx context.Context, projectID, key, value string) (*ConfigEntry, error) {
	var out ConfigEntry
	body := map[string]string{"key": key, "value": value}
	if err := c.do(ctx, http.MethodPost, "/admin/projects/"+url.PathEscape(projectID)+"/configs", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Grant(ctx context.Context, clientID, projectID string, canRead, canWrite bool) (*Permission, error) {
	var out Permission
	body := Permission{ProjectID: projectID, CanRead: canRead, CanWrite: canWrite}
	if err := c.do(ctx, http.MethodPost, "/admin/clients/"+url.PathEscape(clientID)+"/permissions", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPermissions(ctx context.Context, clientID string) ([]Permission, error) {
	var out []Permission
	err := c.do(ctx, http.MethodGet, "/admin/clients/"+url.PathEscape(clientID)+"/permissions", nil, &out, true)
	return out, err
}

func (c *Client) Revoke(ctx context.Context, clientID, projectID string) error {
	path := "/admin/clients/" + url.PathEscape(clientID) + "/permissions/" + url.PathEscape(projectID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

func (c *Client) Snapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	var out Snapshot
	if err := c.do(ctx, http.MethodPost, "/admin/projects/"+url.PathEscape(projectID)+"/snapshots", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func configPath(projectID, key string) string {
	return "/api/projects/" + url.PathEscape(projectID) + "/configs/" + url.PathEscape(key)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, signed bool) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if len(raw) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	if signed {
		if c.signer == nil {
			return errors.New("request requires a signer")
		}
		if err := c.signer.Apply(req, raw); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseError(status int, body []byte) error {
	out := &Error{StatusCode: status}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		out.Message = payload.Error
		return out
	}
	out.Message = strings.TrimSpace(string(body))
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	return out
}
