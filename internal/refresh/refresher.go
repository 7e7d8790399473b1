// Package refresh renueva access tokens con conciencia del expiry.
package refresh

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/socialvault/internal/connect"
	"github.com/dropDatabas3/socialvault/internal/store"
)

// Buffer de seguridad: dentro de estos 5 minutos antes del expiry real la
// credencial se renueva proactivamente.
const expiryBuffer = 5 * time.Minute

// Refresher entrega access tokens válidos, renovando cuando hace falta.
type Refresher struct {
	registry *connect.Registry
	creds    store.CredentialStore
	log      *zap.Logger

	// colapsa renovaciones concurrentes del mismo (user, provider) dentro
	// del proceso; la carrera entre procesos se tolera: last persist wins
	group singleflight.Group

	// now inyectable para tests
	now func() time.Time
}

func New(registry *connect.Registry, creds store.CredentialStore, log *zap.Logger) *Refresher {
	return &Refresher{
		registry: registry,
		creds:    creds,
		log:      log,
		now:      time.Now,
	}
}

// GetValidAccessToken devuelve un token usable o "" si el usuario tiene que
// reconectar. Nunca devuelve error por fallas del provider: esas degradan a
// "" con log, dejando la fila almacenada intacta.
func (r *Refresher) GetValidAccessToken(ctx context.Context, userID, provider string) (string, error) {
	cred, err := r.creds.Get(ctx, userID, provider)
	if err != nil {
		if err == store.ErrNotFound {
			return "", nil
		}
		return "", err
	}

	// sin refresh token no hay renovación silenciosa posible: el caller
	// tiene que mandar al usuario a reconectar
	if cred.RefreshToken == "" {
		if r.now().UTC().Add(expiryBuffer).Before(cred.ExpiresAt) {
			return cred.AccessToken, nil
		}
		return "", nil
	}

	// fuera del buffer: token cacheado, cero llamadas de red
	if r.now().UTC().Add(expiryBuffer).Before(cred.ExpiresAt) {
		return cred.AccessToken, nil
	}

	key := userID + "|" + provider
	tok, err, _ := r.group.Do(key, func() (any, error) {
		return r.refresh(ctx, cred), nil
	})
	if err != nil {
		return "", err
	}
	return tok.(string), nil
}

// refresh ejecuta un refresh-token grant y persiste el resultado.
// Devuelve "" en cualquier falla, sin tocar la fila existente.
func (r *Refresher) refresh(ctx context.Context, cred *store.ProviderCredential) string {
	p, err := r.registry.Get(cred.Provider)
	if err != nil {
		r.log.Warn("refresh: provider no registrado", zap.String("provider", cred.Provider))
		return ""
	}

	// el request entrante puede cancelarse; el grant en vuelo termina igual
	// para no dejar una credencial a medio escribir
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	ts, err := p.Refresh(dctx, cred.RefreshToken)
	if err != nil {
		r.log.Warn("refresh falló, el caller debe reintentar más tarde",
			zap.String("provider", cred.Provider),
			zap.String("user_id", cred.UserID),
			zap.Error(err),
		)
		return ""
	}

	next := *cred
	next.AccessToken = ts.AccessToken
	next.ExpiresAt = ts.ExpiresAt(r.now().UTC())
	if ts.RefreshToken != "" {
		// el provider rotó el refresh token; el viejo no se revoca
		// explícitamente aguas arriba
		next.RefreshToken = ts.RefreshToken
	}

	if err := r.creds.Upsert(dctx, &next); err != nil {
		r.log.Error("refresh: persistencia falló",
			zap.String("provider", cred.Provider),
			zap.Error(err),
		)
		return ""
	}
	return next.AccessToken
}
