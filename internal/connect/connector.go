// Package connect implementa la conexión de cuentas de terceros vía OAuth.
//
// Cada provider es una estrategia detrás de la interfaz Provider, con dos
// variantes de protocolo: authorization-code plano y authorization-code con
// PKCE (S256). El despacho polimórfico vive en el Registry, no en cadenas
// de condicionales.
package connect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Variant indica la variante de protocolo OAuth del provider.
type Variant string

const (
	VariantAuthorizationCode     Variant = "authorization_code"
	VariantAuthorizationCodePKCE Variant = "authorization_code_pkce"
)

// Config de una instancia de provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// Overrides de endpoints (vacío = default del provider). Útil para tests.
	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// TokenSet son los tokens recibidos del provider.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // segundos
	TokenType    string
	Scope        string
}

// ExpiresAt traduce ExpiresIn a un timestamp absoluto desde now.
func (t *TokenSet) ExpiresAt(now time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		// sin expiry declarado: asumir larga vida (60 días, caso facebook)
		return now.Add(60 * 24 * time.Hour)
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Account es el perfil mínimo normalizado que se persiste como metadata.
type Account struct {
	ID            string
	Username      string
	Kind          string // tipo de cuenta (personal, business, page...)
	PageID        string
	Organizations []string
}

// Provider es la estrategia por proveedor de identidad.
type Provider interface {
	Name() string
	Variant() Variant

	// AuthorizeURL arma la URL de autorización. challenge solo aplica a PKCE.
	AuthorizeURL(state, challenge string) string

	// Exchange canjea el code por tokens. verifier solo aplica a PKCE.
	// Si el provider solo emite tokens de corta vida, acá mismo hace el
	// canje secundario por el de larga vida.
	Exchange(ctx context.Context, code, verifier string) (*TokenSet, error)

	// Refresh ejecuta el refresh-token grant.
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)

	// Profile trae la metadata mínima de la cuenta.
	Profile(ctx context.Context, accessToken string) (*Account, error)

	// ProfileRequired indica si un Profile fallido aborta la conexión o
	// solo degrada la metadata.
	ProfileRequired() bool
}

// Errores del flujo de conexión.
var (
	ErrUnknownProvider = errors.New("connect: provider no registrado")
	// ErrInvalidState: state ilegible, vencido, reusado o con campos mal
	// formados. Se trata como posible intento de manipulación.
	ErrInvalidState = errors.New("connect: state inválido")
	ErrExchange     = errors.New("connect: el provider rechazó el canje del code")
	ErrProfileFetch = errors.New("connect: no se pudo obtener el perfil")
)

// ProviderReportedError: el provider devolvió error en el redirect. Se
// superficie sin contactar el token endpoint.
type ProviderReportedError struct {
	Code        string
	Description string
}

func (e *ProviderReportedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("connect: provider reportó %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("connect: provider reportó %s", e.Code)
}

// outboundTimeout acota toda llamada saliente a providers.
const outboundTimeout = 10 * time.Second

// NewProviderHTTPClient arma el cliente con timeout para llamadas al provider.
func NewProviderHTTPClient() *http.Client {
	return &http.Client{Timeout: outboundTimeout}
}
