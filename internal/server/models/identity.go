// Package models defines server-side data models persisted in the database.
package models

import "time"

// Identity is an authenticated actor. PublicKey holds the raw 32-byte
// Ed25519 key and never changes after creation.
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PublicKey []byte    `json:"-"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}
