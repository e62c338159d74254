package client

import "time"

type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatedClient carries the one-time private key of a new identity.
type CreatedClient struct {
	Identity
	Fingerprint   string `json:"fingerprint"`
	PrivateKeyPEM string `json:"private_key_pem"`
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConfigEntry.Value is raw JSON text.
type ConfigEntry struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Permission struct {
	ClientID  string `json:"client_id,omitempty"`
	ProjectID string `json:"project_id"`
	CanRead   bool   `json:"can_read"`
	CanWrite  bool   `json:"can_write"`
}

type Snapshot struct {
	Key     string    `json:"key"`
	URL     string    `json:"url"`
	Entries int       `json:"entries"`
	TakenAt time.Time `json:"taken_at"`
}
