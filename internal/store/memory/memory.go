// Package memory implementa los stores en un mapa con mutex.
// Pensado como fallback de instancia única y doble de test.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/socialvault/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	creds   map[string]store.ProviderCredential
	secrets map[string]store.StoredSecret
}

func New() *Store {
	return &Store{
		creds:   make(map[string]store.ProviderCredential),
		secrets: make(map[string]store.StoredSecret),
	}
}

func key(userID, provider string) string { return userID + "|" + provider }

func (s *Store) Get(ctx context.Context, userID, provider string) (*store.ProviderCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[key(userID, provider)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *Store) Upsert(ctx context.Context, cred *store.ProviderCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	k := key(cred.UserID, cred.Provider)
	c := *cred
	if prev, ok := s.creds[k]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.creds[k] = c
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(userID, provider)
	if _, ok := s.creds[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.creds, k)
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]store.ProviderCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.ProviderCredential
	for _, c := range s.creds {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- SecretStore ---

func (s *Store) GetSecret(ctx context.Context, userID, provider string) (*store.StoredSecret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.secrets[key(userID, provider)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := sec
	return &out, nil
}

func (s *Store) UpsertSecret(ctx context.Context, sec *store.StoredSecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	k := key(sec.UserID, sec.Provider)
	v := *sec
	if prev, ok := s.secrets[k]; ok {
		v.CreatedAt = prev.CreatedAt
	} else {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	s.secrets[k] = v
	return nil
}

func (s *Store) DeleteSecret(ctx context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(userID, provider)
	if _, ok := s.secrets[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.secrets, k)
	return nil
}

// Secrets adapta el Store al contrato store.SecretStore.
type Secrets struct{ *Store }

func (s Secrets) Get(ctx context.Context, userID, provider string) (*store.StoredSecret, error) {
	return s.GetSecret(ctx, userID, provider)
}
func (s Secrets) Upsert(ctx context.Context, sec *store.StoredSecret) error {
	return s.UpsertSecret(ctx, sec)
}
func (s Secrets) Delete(ctx context.Context, userID, provider string) error {
	return s.DeleteSecret(ctx, userID, provider)
}
