// Package store define la forma persistida que consume/produce el servicio.
// El motor de persistencia es un colaborador externo: acá solo viven los
// contratos y los tipos de fila.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound se devuelve cuando no existe fila para la clave pedida.
var ErrNotFound = errors.New("store: not found")

// ProviderCredential es una fila por (user, provider).
type ProviderCredential struct {
	UserID       string
	Provider     string
	Connected    bool
	AccountID    string // id externo en el provider
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	// Metadata específica del provider (page id, orgs, username, tipo de cuenta).
	Metadata CredentialMetadata

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CredentialMetadata agrupa los campos opcionales que cada provider aporta.
type CredentialMetadata struct {
	Username      string   `json:"username,omitempty"`
	AccountType   string   `json:"account_type,omitempty"`
	PageID        string   `json:"page_id,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Degraded      bool     `json:"degraded,omitempty"` // profile fetch falló pero el token sirve
}

// StoredSecret es una fila por (user, key-provider): API key cifrada.
type StoredSecret struct {
	UserID     string
	Provider   string
	Ciphertext string // blob base64 del secretbox, nunca el plaintext
	LastFour   string
	Valid      bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CredentialStore persiste credenciales OAuth. Upsert es atómico por
// (user, provider): last write wins, sin read-modify-write.
type CredentialStore interface {
	Get(ctx context.Context, userID, provider string) (*ProviderCredential, error)
	Upsert(ctx context.Context, cred *ProviderCredential) error
	Delete(ctx context.Context, userID, provider string) error
	ListByUser(ctx context.Context, userID string) ([]ProviderCredential, error)
}

// SecretStore persiste API keys cifradas por (user, provider).
type SecretStore interface {
	Get(ctx context.Context, userID, provider string) (*StoredSecret, error)
	Upsert(ctx context.Context, sec *StoredSecret) error
	Delete(ctx context.Context, userID, provider string) error
}
