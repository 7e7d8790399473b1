package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/audit"
	"github.com/dropDatabas3/socialvault/internal/connect"
	httperrors "github.com/dropDatabas3/socialvault/internal/http/errors"
	"github.com/dropDatabas3/socialvault/internal/http/middlewares"
	"github.com/dropDatabas3/socialvault/internal/observability/metrics"
	"github.com/dropDatabas3/socialvault/internal/workflow"
)

// NewConnectStartHandler arma la URL de autorización del provider para que
// el frontend abra el popup. Requiere subject autenticado en contexto.
func NewConnectStartHandler(svc *connect.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		userID := middlewares.GetSubject(r.Context())
		if userID == "" {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}

		url, err := svc.Start(r.Context(), userID, provider)
		if err != nil {
			if errors.Is(err, connect.ErrUnknownProvider) {
				httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("provider desconocido: "+provider))
				return
			}
			log.Error("connect start falló", zap.String("provider", provider), zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

// La página del callback corre en el popup: le avisa el desenlace al opener
// vía postMessage y se cierra. Jamás incluye tokens ni secretos.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>SocialVault</title></head>
<body>
<script>
(function () {
  var msg = {
    source: "socialvault",
    event: "connect.result",
    ok: {{.OK}},
    provider: {{.Provider}},
    username: {{.Username}},
    degraded: {{.Degraded}},
    error: {{.ErrorCode}}
  };
  if (window.opener) {
    window.opener.postMessage(msg, "*");
  }
  window.close();
})();
</script>
<p>Podés cerrar esta ventana.</p>
</body></html>
`))

type callbackView struct {
	OK        bool
	Provider  string
	Username  string
	Degraded  bool
	ErrorCode string
}

// NewConnectCallbackHandler procesa el redirect del provider. Este endpoint
// NO lleva origin-check ni bearer: el browser llega acá por navegación
// top-level y la autenticación real viaja en el state firmado.
func NewConnectCallbackHandler(svc *connect.Service, wf *workflow.Client, sink audit.Sink, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		q := r.URL.Query()

		res, err := svc.Callback(r.Context(),
			provider,
			q.Get("code"),
			q.Get("state"),
			q.Get("error"),
			q.Get("error_description"),
		)
		if err != nil {
			view := callbackView{Provider: provider}
			var pre *connect.ProviderReportedError
			switch {
			case errors.As(err, &pre):
				// el usuario canceló o el provider rechazó antes del canje
				view.ErrorCode = "provider_" + pre.Code
				metrics.ConnectAttempts.WithLabelValues(provider, "provider_error").Inc()
			case connect.IsInvalidState(err):
				view.ErrorCode = "invalid_state"
				metrics.ConnectAttempts.WithLabelValues(provider, "invalid_state").Inc()
				// posible manipulación o replay: queda auditado
				audit.Record(r.Context(), sink, audit.Event{
					Action:    "connect.invalid_state",
					Resource:  r.URL.Path,
					IP:        middlewares.ClientIP(r),
					UserAgent: r.UserAgent(),
					Metadata:  map[string]any{"provider": provider},
				}, log)
			case errors.Is(err, connect.ErrUnknownProvider):
				view.ErrorCode = "unknown_provider"
			default:
				view.ErrorCode = "exchange_failed"
				metrics.ConnectAttempts.WithLabelValues(provider, "exchange_failed").Inc()
				log.Error("connect callback falló",
					zap.String("provider", provider),
					zap.Error(err),
				)
			}
			renderCallback(w, view, log)
			return
		}

		outcome := "connected"
		if res.Degraded {
			outcome = "degraded"
		}
		metrics.ConnectAttempts.WithLabelValues(provider, outcome).Inc()

		// best-effort: el motor de workflows se entera, pero su caída no
		// afecta a la conexión ya persistida
		if wf.Enabled() {
			// el subject viene del state firmado, no del contexto del request
			go wf.NotifyConnected(r.Context(), res.UserID, provider)
		}

		renderCallback(w, callbackView{
			OK:       true,
			Provider: res.Provider,
			Username: res.Username,
			Degraded: res.Degraded,
		}, log)
	}
}

func renderCallback(w http.ResponseWriter, view callbackView, log *zap.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := callbackPage.Execute(w, view); err != nil {
		log.Error("callback render falló", zap.Error(err))
	}
}
