// Package errors define la taxonomía de errores HTTP del servicio.
package errors

import (
	"fmt"
	"net/http"
)

// AppError es la estructura estándar de error de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail devuelve una COPIA con detalle extra (no muta los globales).
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// FromError convierte un error genérico en AppError; lo desconocido se
// vuelve un 500 genérico sin filtrar detalle al cliente.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

var (
	// 400
	ErrInvalidRequest = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "El cuerpo o los parámetros de la solicitud son inválidos.",
		HTTPStatus: http.StatusBadRequest,
	}
	// InvalidState se trata como posible intento de manipulación: se audita.
	ErrInvalidState = &AppError{
		Code:       "INVALID_STATE",
		Message:    "El parámetro state es inválido o ya fue usado.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrProviderRejected = &AppError{
		Code:       "PROVIDER_ERROR",
		Message:    "El proveedor rechazó la operación.",
		HTTPStatus: http.StatusBadRequest,
	}

	// 401
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "No autorizado. Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// 403
	ErrForbiddenOrigin = &AppError{
		Code:       "FORBIDDEN_ORIGIN",
		Message:    "El origen de la solicitud no está permitido.",
		HTTPStatus: http.StatusForbidden,
	}

	// 404
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	// 429
	ErrRateLimited = &AppError{
		Code:       "TOO_MANY_REQUESTS",
		Message:    "Demasiados intentos. Espere antes de reintentar.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	// 500 — mensajes genéricos: el detalle queda del lado del servidor
	ErrConfiguration = &AppError{
		Code:       "CONFIGURATION_ERROR",
		Message:    "El servicio no está configurado correctamente.",
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "El proveedor no respondió correctamente.",
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrInternal = &AppError{
		Code:       "INTERNAL",
		Message:    "Error interno del servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
