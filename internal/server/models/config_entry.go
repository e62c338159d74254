package models

import "time"

// ConfigEntry is one key of a project's configuration. Value is stored and
// returned as the exact JSON text that was written.
type ConfigEntry struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
