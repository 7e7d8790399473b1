package middlewares

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/socialvault/internal/http/errors"
	"github.com/dropDatabas3/socialvault/internal/observability/metrics"
	"github.com/dropDatabas3/socialvault/internal/rate"
)

// DefaultRateWindow es la ventana cuando la ruta no define una propia.
const DefaultRateWindow = 15 * time.Minute

// RouteLimit configura el bucket de una ruta.
type RouteLimit struct {
	Key    string        // nombre del bucket (actionKey)
	Max    int           // intentos por ventana
	Window time.Duration // largo de la ventana; 0 = DefaultRateWindow
}

// WithRateLimit limita por (subject, actionKey) en ventana fija. Debe ir
// DESPUÉS de WithBearer: sin subject en contexto cae a la IP del cliente.
// Si el limiter mismo falla, el request pasa (fail-open) con warning.
func WithRateLimit(limiter rate.Limiter, rl RouteLimit, log *zap.Logger) Middleware {
	window := rl.Window
	if window <= 0 {
		window = DefaultRateWindow
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetSubject(r.Context())
			if subject == "" {
				subject = ClientIP(r)
			}
			key := subject + "|" + rl.Key

			res, err := limiter.Allow(r.Context(), key, rl.Max, window)
			if err != nil {
				if log != nil {
					log.Warn("rate limiter error", zap.String("key", rl.Key), zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				resetIn := int(math.Ceil(res.RetryAfter.Seconds()))
				if resetIn <= 0 {
					resetIn = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(resetIn))
				metrics.RateLimited.WithLabelValues(rl.Key).Inc()
				httperrors.WriteRateLimited(w, resetIn)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
