// Package router arma el chi.Router y la puerta de seguridad por ruta.
//
// Cada ruta de negocio pasa por la misma tubería, en este orden fijo:
// request-id → métricas → origin-check → bearer → rate-limit → handler →
// audit. El callback OAuth es la única ruta que salta origin y bearer: el
// browser llega por navegación top-level y la autenticación viaja en el
// state firmado.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/audit"
	"github.com/dropDatabas3/socialvault/internal/http/middlewares"
	"github.com/dropDatabas3/socialvault/internal/identity"
	"github.com/dropDatabas3/socialvault/internal/rate"
)

// GateConfig describe la puerta de una ruta.
type GateConfig struct {
	SkipOrigin bool
	SkipBearer bool

	// rate limit del bucket; Max 0 = sin límite para la ruta
	RateLimitKey    string
	RateLimitMax    int
	RateLimitWindow time.Duration

	// AuditAction no vacío = evento de auditoría en éxito
	AuditAction string
}

// Deps agrupa los colaboradores compartidos por todas las puertas.
type Deps struct {
	Verifier       identity.Verifier
	Limiter        rate.Limiter
	AuditSink      audit.Sink
	AllowedOrigins []string
	Log            *zap.Logger
}

// Gate envuelve un handler con la tubería de seguridad configurada.
func Gate(d Deps, route string, gc GateConfig, h http.Handler) http.Handler {
	mws := []middlewares.Middleware{
		middlewares.WithRequestID(),
		middlewares.WithMetrics(route),
	}
	if !gc.SkipOrigin {
		mws = append(mws, middlewares.WithOriginCheck(d.AllowedOrigins))
	}
	if !gc.SkipBearer {
		mws = append(mws, middlewares.WithBearer(d.Verifier))
	}
	if gc.RateLimitMax > 0 {
		mws = append(mws, middlewares.WithRateLimit(d.Limiter, middlewares.RouteLimit{
			Key:    gc.RateLimitKey,
			Max:    gc.RateLimitMax,
			Window: gc.RateLimitWindow,
		}, d.Log))
	}
	if gc.AuditAction != "" {
		mws = append(mws, middlewares.WithAudit(d.AuditSink, gc.AuditAction, d.Log))
	}
	return middlewares.Chain(h, mws...)
}

// Handlers son los endpoints ya construidos que el router monta.
type Handlers struct {
	ConnectStart    http.HandlerFunc
	ConnectCallback http.HandlerFunc
	SaveKey         http.HandlerFunc
	ValidateKey     http.HandlerFunc
	DeleteKey       http.HandlerFunc
	RefreshCred     http.HandlerFunc
	ListCreds       http.HandlerFunc
	Disconnect      http.HandlerFunc
	Readyz          http.HandlerFunc
}

// Limits son los presupuestos por bucket, ya resueltos desde config.
type Limits struct {
	ConnectStart GateConfig
	KeysSave     GateConfig
	KeysValidate GateConfig
	Refresh      GateConfig
}

// New monta todas las rutas con sus puertas.
func New(d Deps, h Handlers, l Limits) http.Handler {
	r := chi.NewRouter()

	r.Method(http.MethodGet, "/v1/connect/{provider}",
		Gate(d, "/v1/connect/{provider}", l.ConnectStart, h.ConnectStart))

	// el redirect del provider: sin origin-check ni bearer
	r.Method(http.MethodGet, "/v1/connect/{provider}/callback",
		Gate(d, "/v1/connect/{provider}/callback", GateConfig{SkipOrigin: true, SkipBearer: true}, h.ConnectCallback))

	r.Method(http.MethodPost, "/v1/keys",
		Gate(d, "/v1/keys", l.KeysSave, h.SaveKey))
	r.Method(http.MethodPost, "/v1/keys/validate",
		Gate(d, "/v1/keys/validate", l.KeysValidate, h.ValidateKey))
	r.Method(http.MethodDelete, "/v1/keys/{provider}",
		Gate(d, "/v1/keys/{provider}", GateConfig{AuditAction: "keys.delete"}, h.DeleteKey))

	r.Method(http.MethodPost, "/v1/credentials/{provider}/refresh",
		Gate(d, "/v1/credentials/{provider}/refresh", l.Refresh, h.RefreshCred))
	r.Method(http.MethodGet, "/v1/credentials",
		Gate(d, "/v1/credentials", GateConfig{}, h.ListCreds))
	r.Method(http.MethodDelete, "/v1/credentials/{provider}",
		Gate(d, "/v1/credentials/{provider}", GateConfig{AuditAction: "credentials.disconnect"}, h.Disconnect))

	r.Get("/readyz", h.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
