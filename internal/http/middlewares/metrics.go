package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/socialvault/internal/observability/metrics"
)

// WithMetrics observa contador y latencia por ruta. route es el patrón
// declarado (no el path concreto) para no explotar la cardinalidad.
func WithMetrics(route string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
