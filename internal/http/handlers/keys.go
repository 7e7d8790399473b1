package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/socialvault/internal/http/errors"
	"github.com/dropDatabas3/socialvault/internal/http/middlewares"
	"github.com/dropDatabas3/socialvault/internal/security/secretbox"
	"github.com/dropDatabas3/socialvault/internal/store"
)

type saveKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// La respuesta jamás incluye la key: solo la vista enmascarada.
type keyResponse struct {
	Provider string `json:"provider"`
	LastFour string `json:"lastFour"`
	Valid    bool   `json:"valid"`
}

// NewSaveKeyHandler valida la forma de la API key, la cifra y la persiste.
// El plaintext muere en este handler: a disco solo llega el blob.
func NewSaveKeyHandler(secrets store.SecretStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.GetSubject(r.Context())
		if userID == "" {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}

		var req saveKeyRequest
		if !readStrictJSON(w, r, &req) {
			return
		}
		req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
		req.APIKey = strings.TrimSpace(req.APIKey)
		if req.Provider == "" || req.APIKey == "" {
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDetail("provider y apiKey son requeridos"))
			return
		}
		if !secretbox.ValidateFormat(req.Provider, req.APIKey) {
			httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithDetail("la key no tiene la forma esperada para "+req.Provider))
			return
		}

		blob, err := secretbox.Encrypt(req.APIKey)
		if err != nil {
			if errors.Is(err, secretbox.ErrNotConfigured) {
				log.Error("secretbox sin configurar", zap.Error(err))
				httperrors.WriteError(w, httperrors.ErrConfiguration)
				return
			}
			log.Error("cifrado de key falló", zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}

		sec := &store.StoredSecret{
			UserID:     userID,
			Provider:   req.Provider,
			Ciphertext: blob,
			LastFour:   secretbox.LastFour(req.APIKey),
			Valid:      true,
		}
		if err := secrets.Upsert(r.Context(), sec); err != nil {
			log.Error("persistencia de key falló", zap.String("provider", req.Provider), zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}

		writeJSON(w, http.StatusOK, keyResponse{
			Provider: sec.Provider,
			LastFour: sec.LastFour,
			Valid:    sec.Valid,
		})
	}
}

type validateKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// NewValidateKeyHandler chequea la forma de una key sin persistir nada.
// También prueba que el cifrado esté operativo: una key "válida" que después
// no se pueda guardar sería una mentira.
func NewValidateKeyHandler(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateKeyRequest
		if !readStrictJSON(w, r, &req) {
			return
		}
		valid := secretbox.ValidateFormat(strings.TrimSpace(req.Provider), strings.TrimSpace(req.APIKey))
		if valid {
			if _, err := secretbox.Encrypt("probe"); err != nil {
				log.Error("secretbox no operativo", zap.Error(err))
				httperrors.WriteError(w, httperrors.ErrConfiguration)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
	}
}

// NewDeleteKeyHandler borra la key cifrada del (user, provider).
func NewDeleteKeyHandler(secrets store.SecretStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.GetSubject(r.Context())
		if userID == "" {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}
		provider := strings.ToLower(chi.URLParam(r, "provider"))

		if err := secrets.Delete(r.Context(), userID, provider); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httperrors.WriteError(w, httperrors.ErrNotFound)
				return
			}
			log.Error("borrado de key falló", zap.String("provider", provider), zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
