// Package errors define el formato de error JSON de la API.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la API.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs

	// CompensationIncomplete la saga falló y no pudo deshacer todo.
	CompensationIncomplete bool `json:"compensation_incomplete,omitempty"`
	// Fields errores de validación por campo.
	Fields any `json:"fields,omitempty"`
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error { return e.Err }

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithCause retorna una copia con la causa seteada.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithDetail agrega detalles adicionales al error (útil para validaciones)
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithFields agrega errores por campo.
func (e *AppError) WithFields(fields any) *AppError {
	cp := *e
	cp.Fields = fields
	return &cp
}

var (
	ErrBadRequest          = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrInvalidCredentials  = New(http.StatusBadRequest, "invalid_credentials", "Invalid username or password format")
	ErrUnauthorized        = New(http.StatusUnauthorized, "unauthorized", "Authentication required")
	ErrInvalidLogin        = New(http.StatusUnauthorized, "invalid_login", "Invalid username or password")
	ErrForbidden           = New(http.StatusForbidden, "forbidden", "Forbidden")
	ErrNotFound            = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrConflict            = New(http.StatusConflict, "conflict", "Resource already exists")
	ErrRateLimitExceeded   = New(http.StatusTooManyRequests, "rate_limited", "Too many requests")
	ErrInternalServerError = New(http.StatusInternalServerError, "internal_error", "Internal server error")
	ErrBadGateway          = New(http.StatusBadGateway, "bad_gateway", "Upstream unavailable")
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, "unavailable", "Service unavailable")
)

// FromError convierte cualquier error en *AppError; los desconocidos son 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WriteError escribe una respuesta HTTP basada en el error proporcionado.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}
