package errors

import (
	"encoding/json"
	"net/http"
)

// errorResponse controla exactamente qué campos ve el cliente.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	ResetIn int    `json:"resetIn,omitempty"` // segundos, solo 429
}

// WriteError serializa un AppError (o un error genérico) como JSON.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// WriteRateLimited es el 429 con la pista resetIn en segundos.
func WriteRateLimited(w http.ResponseWriter, resetIn int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    ErrRateLimited.Code,
		Message: ErrRateLimited.Message,
		ResetIn: resetIn,
	})
}
