package connect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/store"
)

// Service orquesta el flujo de conexión: URL de autorización, callback,
// canje y persistencia.
type Service struct {
	registry *Registry
	creds    store.CredentialStore
	states   *StateCodec
	nonces   NonceStore
	log      *zap.Logger
}

func NewService(registry *Registry, creds store.CredentialStore, states *StateCodec, nonces NonceStore, log *zap.Logger) *Service {
	return &Service{
		registry: registry,
		creds:    creds,
		states:   states,
		nonces:   nonces,
		log:      log,
	}
}

// Result es el desenlace de un callback exitoso.
type Result struct {
	UserID    string // subject dueño de la credencial, extraído del state
	Provider  string
	AccountID string
	Username  string
	Connected bool
	Degraded  bool // el perfil falló pero el token quedó persistido
}

// Start arma la URL de autorización del provider con un state firmado que
// embebe el subject. Para PKCE genera verifier+challenge S256.
func (s *Service) Start(ctx context.Context, userID, providerName string) (string, error) {
	p, err := s.registry.Get(providerName)
	if err != nil {
		return "", err
	}

	claims := StateClaims{
		UserID:   userID,
		Provider: providerName,
		Nonce:    NewNonce(),
	}

	var challenge string
	if p.Variant() == VariantAuthorizationCodePKCE {
		verifier, err := NewCodeVerifier()
		if err != nil {
			return "", err
		}
		claims.Verifier = verifier
		challenge = ChallengeS256(verifier)
	}

	state, err := s.states.Sign(claims)
	if err != nil {
		return "", err
	}
	return p.AuthorizeURL(state, challenge), nil
}

// Callback procesa el retorno del provider. El orden importa: error
// reportado por el provider y validación del state ocurren ANTES de
// cualquier llamada de red.
func (s *Service) Callback(ctx context.Context, providerName, code, rawState, provErr, provErrDesc string) (*Result, error) {
	// el provider ya reportó el error: no tocamos el token endpoint
	if provErr != "" {
		return nil, &ProviderReportedError{Code: provErr, Description: provErrDesc}
	}

	p, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	claims, err := s.states.Parse(rawState)
	if err != nil {
		return nil, err
	}
	if claims.Provider != providerName {
		return nil, ErrInvalidState
	}
	if p.Variant() == VariantAuthorizationCodePKCE && len(claims.Verifier) != pkceVerifierLength {
		return nil, ErrInvalidState
	}
	// uso único: un replay del mismo state es un posible ataque
	if !s.nonces.Consume(ctx, claims.Nonce) {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, fmt.Errorf("%w: callback sin code", ErrExchange)
	}

	// Si el request entrante se cancela a mitad del pipeline, el canje en
	// vuelo termina igual: cortar acá podría dejar una credencial a medio
	// escribir. El resultado simplemente se descarta si ya no hay a quién
	// responder.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	ts, err := p.Exchange(dctx, code, claims.Verifier)
	if err != nil {
		return nil, err
	}

	res := &Result{UserID: claims.UserID, Provider: providerName, Connected: true}
	cred := &store.ProviderCredential{
		UserID:       claims.UserID,
		Provider:     providerName,
		Connected:    true,
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		ExpiresAt:    ts.ExpiresAt(time.Now().UTC()),
	}

	account, perr := p.Profile(dctx, ts.AccessToken)
	switch {
	case perr == nil:
		cred.AccountID = account.ID
		cred.Metadata = store.CredentialMetadata{
			Username:      account.Username,
			AccountType:   account.Kind,
			PageID:        account.PageID,
			Organizations: account.Organizations,
		}
		res.AccountID = account.ID
		res.Username = account.Username
	case p.ProfileRequired():
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, perr)
	default:
		// el perfil no es imprescindible: persistimos igual con metadata
		// degradada para no perder el token recién canjeado
		s.log.Warn("profile fetch degraded",
			zap.String("provider", providerName),
			zap.Error(perr),
		)
		cred.Metadata = store.CredentialMetadata{Degraded: true}
		res.Degraded = true
	}

	// un único upsert atómico; dos callbacks concurrentes del mismo
	// (user, provider) son ambos seguros: last write wins
	if err := s.creds.Upsert(dctx, cred); err != nil {
		return nil, err
	}
	return res, nil
}

// IsInvalidState ayuda a los handlers a clasificar el error.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }
