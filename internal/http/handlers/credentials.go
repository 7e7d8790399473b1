package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/socialvault/internal/http/errors"
	"github.com/dropDatabas3/socialvault/internal/http/middlewares"
	"github.com/dropDatabas3/socialvault/internal/observability/metrics"
	"github.com/dropDatabas3/socialvault/internal/refresh"
	"github.com/dropDatabas3/socialvault/internal/store"
)

// NewRefreshCredentialHandler fuerza una renovación del access token del
// (user, provider). La respuesta dice si la conexión sigue viva y hasta
// cuándo; el token crudo jamás viaja en el body.
func NewRefreshCredentialHandler(refresher *refresh.Refresher, creds store.CredentialStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.GetSubject(r.Context())
		if userID == "" {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}
		provider := strings.ToLower(chi.URLParam(r, "provider"))

		token, err := refresher.GetValidAccessToken(r.Context(), userID, provider)
		if err != nil {
			metrics.RefreshResults.WithLabelValues(provider, "error").Inc()
			log.Error("refresh falló", zap.String("provider", provider), zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}
		if token == "" {
			// sin token usable: el usuario tiene que pasar de nuevo por connect
			metrics.RefreshResults.WithLabelValues(provider, "reconnect_required").Inc()
			writeJSON(w, http.StatusOK, map[string]any{
				"provider":          provider,
				"connected":         false,
				"reconnectRequired": true,
			})
			return
		}
		metrics.RefreshResults.WithLabelValues(provider, "refreshed").Inc()

		cred, err := creds.Get(r.Context(), userID, provider)
		if err != nil {
			log.Error("lectura post-refresh falló", zap.String("provider", provider), zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"provider":  provider,
			"connected": true,
			"expiresAt": cred.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

type credentialSummary struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
	Kind      string `json:"accountType,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// NewListCredentialsHandler arma el resumen de conexiones para el dashboard.
// Solo metadata: nada de access/refresh tokens ni keys.
func NewListCredentialsHandler(creds store.CredentialStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.GetSubject(r.Context())
		if userID == "" {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}

		rows, err := creds.ListByUser(r.Context(), userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("listado de credenciales falló", zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}

		out := make([]credentialSummary, 0, len(rows))
		for _, c := range rows {
			s := credentialSummary{
				Provider:  c.Provider,
				Connected: c.Connected,
				Username:  c.Metadata.Username,
				Kind:      c.Metadata.AccountType,
				Degraded:  c.Metadata.Degraded,
			}
			if !c.ExpiresAt.IsZero() {
				s.ExpiresAt = c.ExpiresAt.UTC().Format(time.RFC3339)
			}
			out = append(out, s)
		}
		writeJSON(w, http.StatusOK, map[string]any{"credentials": out})
	}
}

// NewDisconnectHandler borra la credencial OAuth del (user, provider).
func NewDisconnectHandler(creds store.CredentialStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.GetSubject(r.Context())
		if userID == "" {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}
		provider := strings.ToLower(chi.URLParam(r, "provider"))

		if err := creds.Delete(r.Context(), userID, provider); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httperrors.WriteError(w, httperrors.ErrNotFound)
				return
			}
			log.Error("desconexión falló", zap.String("provider", provider), zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
