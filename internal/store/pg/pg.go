// Package pg implementa CredentialStore y SecretStore sobre PostgreSQL (pgx).
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialvault/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Connect abre un pool con timeouts razonables y hace ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (s *Store) Get(ctx context.Context, userID, provider string) (*store.ProviderCredential, error) {
	const q = `
		SELECT user_id, provider, connected, account_id, access_token, refresh_token,
		       expires_at, metadata, created_at, updated_at
		FROM provider_credential
		WHERE user_id = $1 AND provider = $2
	`
	var c store.ProviderCredential
	var meta []byte
	err := s.pool.QueryRow(ctx, q, userID, provider).Scan(
		&c.UserID, &c.Provider, &c.Connected, &c.AccountID, &c.AccessToken,
		&c.RefreshToken, &c.ExpiresAt, &meta, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &c.Metadata)
	}
	return &c, nil
}

// Upsert es un único INSERT ... ON CONFLICT: atómico, last write wins.
func (s *Store) Upsert(ctx context.Context, cred *store.ProviderCredential) error {
	meta, err := json.Marshal(cred.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO provider_credential
			(user_id, provider, connected, account_id, access_token, refresh_token, expires_at, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			connected = EXCLUDED.connected,
			account_id = EXCLUDED.account_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`
	_, err = s.pool.Exec(ctx, q,
		cred.UserID, cred.Provider, cred.Connected, cred.AccountID,
		cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, meta,
	)
	return err
}

func (s *Store) Delete(ctx context.Context, userID, provider string) error {
	const q = `DELETE FROM provider_credential WHERE user_id = $1 AND provider = $2`
	tag, err := s.pool.Exec(ctx, q, userID, provider)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]store.ProviderCredential, error) {
	const q = `
		SELECT user_id, provider, connected, account_id, access_token, refresh_token,
		       expires_at, metadata, created_at, updated_at
		FROM provider_credential
		WHERE user_id = $1
		ORDER BY provider
	`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ProviderCredential
	for rows.Next() {
		var c store.ProviderCredential
		var meta []byte
		if err := rows.Scan(
			&c.UserID, &c.Provider, &c.Connected, &c.AccountID, &c.AccessToken,
			&c.RefreshToken, &c.ExpiresAt, &meta, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &c.Metadata)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- SecretStore ---

// Secrets implementa store.SecretStore sobre la tabla stored_secret.
type Secrets struct {
	pool *pgxpool.Pool
}

func NewSecrets(pool *pgxpool.Pool) *Secrets { return &Secrets{pool: pool} }

func (s *Secrets) Get(ctx context.Context, userID, provider string) (*store.StoredSecret, error) {
	const q = `
		SELECT user_id, provider, ciphertext, last_four, valid, created_at, updated_at
		FROM stored_secret
		WHERE user_id = $1 AND provider = $2
	`
	var sec store.StoredSecret
	err := s.pool.QueryRow(ctx, q, userID, provider).Scan(
		&sec.UserID, &sec.Provider, &sec.Ciphertext, &sec.LastFour,
		&sec.Valid, &sec.CreatedAt, &sec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

func (s *Secrets) Upsert(ctx context.Context, sec *store.StoredSecret) error {
	const q = `
		INSERT INTO stored_secret (user_id, provider, ciphertext, last_four, valid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			last_four = EXCLUDED.last_four,
			valid = EXCLUDED.valid,
			updated_at = now()
	`
	_, err := s.pool.Exec(ctx, q, sec.UserID, sec.Provider, sec.Ciphertext, sec.LastFour, sec.Valid)
	return err
}

func (s *Secrets) Delete(ctx context.Context, userID, provider string) error {
	const q = `DELETE FROM stored_secret WHERE user_id = $1 AND provider = $2`
	tag, err := s.pool.Exec(ctx, q, userID, provider)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
