package handlers

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/socialvault/internal/http/errors"
	"github.com/dropDatabas3/socialvault/internal/security/secretbox"
)

// NewReadyzHandler chequea las dependencias duras del servicio: storage,
// cache compartido (si hay) y que el secretbox pueda cifrar/descifrar.
func NewReadyzHandler(checkStore, checkCache func(ctx context.Context) error, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v := os.Getenv("SERVICE_VERSION"); v != "" {
			w.Header().Set("X-Service-Version", v)
		}

		if checkStore != nil {
			if err := checkStore(r.Context()); err != nil {
				log.Error("readyz: storage caído", zap.Error(err))
				httperrors.WriteError(w, httperrors.ErrInternal.WithDetail("storage unavailable"))
				return
			}
		}

		// self-check del cifrado: un roundtrip efímero en memoria
		blob, err := secretbox.Encrypt("selfcheck")
		if err == nil {
			var pt string
			pt, err = secretbox.Decrypt(blob)
			if err == nil && pt != "selfcheck" {
				err = secretbox.ErrIntegrity
			}
		}
		if err != nil {
			log.Error("readyz: secretbox no operativo", zap.Error(err))
			httperrors.WriteError(w, httperrors.ErrConfiguration)
			return
		}

		if checkCache != nil {
			if err := checkCache(r.Context()); err != nil {
				log.Error("readyz: cache caído", zap.Error(err))
				httperrors.WriteError(w, httperrors.ErrInternal.WithDetail("cache unavailable"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
