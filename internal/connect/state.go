package connect

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// El state del redirect OAuth es un token firmado y versionado, no un string
// con delimitadores: la manipulación se detecta por firma, no por heurística
// de forma de campos.
const (
	stateAudience = "connect-state"
	stateIssuer   = "socialvault"
	stateTTL      = 10 * time.Minute
)

// pkceVerifierLength es la longitud esperada del code_verifier
// (32 bytes aleatorios en base64url sin padding).
const pkceVerifierLength = 43

// StateClaims viaja embebido en el parámetro state.
type StateClaims struct {
	UserID   string
	Provider string
	Nonce    string
	Verifier string // solo variante PKCE
}

// StateCodec firma y parsea states con un secreto simétrico.
type StateCodec struct {
	secret []byte
}

func NewStateCodec(secret string) (*StateCodec, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("state signing secret demasiado corto")
	}
	return &StateCodec{secret: []byte(secret)}, nil
}

// Sign emite el state firmado HS256 con TTL corto.
func (c *StateCodec) Sign(claims StateClaims) (string, error) {
	now := time.Now().UTC()
	mc := jwtv5.MapClaims{
		"iss":      stateIssuer,
		"aud":      stateAudience,
		"sub":      claims.UserID,
		"provider": claims.Provider,
		"nonce":    claims.Nonce,
		"iat":      now.Unix(),
		"exp":      now.Add(stateTTL).Unix(),
		"v":        1,
	}
	if claims.Verifier != "" {
		mc["cv"] = claims.Verifier
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, mc)
	return tk.SignedString(c.secret)
}

// Parse valida firma, audiencia y expiry, y chequea que el subject sea un
// identificador bien formado. Todo esto ocurre antes de cualquier llamada
// de red.
func (c *StateCodec) Parse(raw string) (*StateClaims, error) {
	tk, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return c.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithAudience(stateAudience),
		jwtv5.WithIssuer(stateIssuer),
	)
	if err != nil || !tk.Valid {
		return nil, ErrInvalidState
	}
	mc, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidState
	}

	claims := &StateClaims{
		UserID:   claimString(mc, "sub"),
		Provider: claimString(mc, "provider"),
		Nonce:    claimString(mc, "nonce"),
		Verifier: claimString(mc, "cv"),
	}
	if !validSubject(claims.UserID) {
		return nil, ErrInvalidState
	}
	if claims.Nonce == "" {
		return nil, ErrInvalidState
	}
	return claims, nil
}

// validSubject acepta los identificadores opacos de la plataforma tal como
// vienen (uuid, slug, lo que sea): solo exige largo acotado y que no traiga
// espacios, controles ni delimitadores inyectables.
func validSubject(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r == 0x7f || r == '|' {
			return false
		}
	}
	return true
}

func claimString(m jwtv5.MapClaims, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// NonceStore garantiza el uso único del state: Consume devuelve true solo la
// primera vez que ve el nonce dentro del TTL.
type NonceStore interface {
	Consume(ctx context.Context, nonce string) bool
}

// NewNonce genera el nonce CSRF del state.
func NewNonce() string { return uuid.NewString() }

// NewCodeVerifier genera un code_verifier PKCE de exactamente 43 caracteres
// (32 bytes aleatorios, base64url sin padding).
func NewCodeVerifier() (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// ChallengeS256 computa code_challenge = base64url(SHA-256(verifier)).
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
