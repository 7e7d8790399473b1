package middlewares

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/audit"
)

// statusRecorder captura el status code escrito por el handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// WithAudit registra un evento cuando el handler responde con éxito (2xx).
// Los fallos del sink nunca afectan la respuesta: audit.Record los traga.
func WithAudit(sink audit.Sink, action string, log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < 200 || rec.status >= 300 {
				return
			}
			audit.Record(r.Context(), sink, audit.Event{
				Subject:   GetSubject(r.Context()),
				Action:    action,
				Resource:  r.URL.Path,
				IP:        ClientIP(r),
				UserAgent: r.UserAgent(),
				Metadata: map[string]any{
					"request_id": GetRequestID(r.Context()),
					"method":     r.Method,
				},
			}, log)
		})
	}
}
