// Package controllers contiene los handlers HTTP del servicio.
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/ringauth/internal/auth"
	httperrors "github.com/dropDatabas3/ringauth/internal/http/errors"
	"github.com/dropDatabas3/ringauth/internal/http/helpers"
	"github.com/dropDatabas3/ringauth/internal/observability/logger"
	"github.com/dropDatabas3/ringauth/internal/saga"
	"github.com/dropDatabas3/ringauth/internal/validation"
)

// AuthService lo que el controller necesita de auth.Service.
type AuthService interface {
	Register(ctx context.Context, creds validation.Credentials) (*auth.Session, error)
	Login(ctx context.Context, creds validation.Credentials) (*auth.Session, error)
	Logout(ctx context.Context, username string) error
	Authenticate(ctx context.Context, token string) (*auth.CachedToken, error)
}

// sessionResponse GET /v1/auth/session. No devuelve el token.
type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthController maneja register, login, logout y la consulta de sesión.
type AuthController struct {
	service AuthService
}

// NewAuthController crea un nuevo controller de auth.
func NewAuthController(service AuthService) *AuthController {
	return &AuthController{service: service}
}

// Register maneja POST /v1/auth/register
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Register"))

	var req validation.Credentials
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	sess, err := c.service.Register(ctx, req)
	if err != nil {
		log.Debug("register failed", logger.Err(err))
		writeAuthError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, sess)
}

// Login maneja POST /v1/auth/login
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Login"))

	var req validation.Credentials
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	sess, err := c.service.Login(ctx, req)
	if err != nil {
		log.Debug("login failed", logger.Err(err))
		writeAuthError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, sess)
}

// Logout maneja DELETE /v1/auth/session (Authorization: Bearer <token>)
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	ct, ok := c.authenticate(w, r)
	if !ok {
		return
	}
	if err := c.service.Logout(r.Context(), ct.Username); err != nil {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session maneja GET /v1/auth/session (Authorization: Bearer <token>)
func (c *AuthController) Session(w http.ResponseWriter, r *http.Request) {
	ct, ok := c.authenticate(w, r)
	if !ok {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, sessionResponse{
		UserID:    ct.UserID,
		Username:  ct.Username,
		ExpiresAt: ct.ExpiresAt,
	})
}

func (c *AuthController) authenticate(w http.ResponseWriter, r *http.Request) (*auth.CachedToken, bool) {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	tok = strings.TrimSpace(tok)
	if !ok || tok == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return nil, false
	}
	ct, err := c.service.Authenticate(r.Context(), tok)
	if err != nil {
		writeAuthError(w, err)
		return nil, false
	}
	return ct, true
}

// writeAuthError mapea errores del servicio a errores HTTP.
func writeAuthError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	var appErr *httperrors.AppError

	switch {
	case errors.As(err, &verr):
		appErr = httperrors.ErrInvalidCredentials.WithFields(verr.Fields)
	case errors.Is(err, auth.ErrInvalidCredentials):
		appErr = httperrors.ErrInvalidCredentials.WithDetail(err.Error())
	case errors.Is(err, auth.ErrInvalidLogin):
		appErr = httperrors.ErrInvalidLogin
	case errors.Is(err, auth.ErrUserExists):
		appErr = httperrors.ErrConflict.WithDetail("username already taken")
	case errors.Is(err, auth.ErrUnauthenticated):
		appErr = httperrors.ErrUnauthorized.WithDetail("invalid or revoked token")
	case errors.Is(err, auth.ErrNoSession):
		appErr = httperrors.ErrNotFound.WithDetail("no cached session")
	case errors.Is(err, auth.ErrBusy):
		appErr = httperrors.ErrServiceUnavailable.WithDetail("too many concurrent requests")
	case errors.Is(err, auth.ErrNoCacheNode):
		appErr = httperrors.ErrServiceUnavailable.WithDetail("no cache node available")
	default:
		appErr = httperrors.ErrInternalServerError.WithCause(err)
	}
	if saga.IsCompensationIncomplete(err) {
		cp := *appErr
		cp.CompensationIncomplete = true
		appErr = &cp
	}
	httperrors.WriteError(w, appErr)
}
