package models

// Permission is the read/write grant of one identity on one project.
type Permission struct {
	ClientID  string `json:"client_id"`
	ProjectID string `json:"project_id"`
	CanRead   bool   `json:"can_read"`
	CanWrite  bool   `json:"can_write"`
}
