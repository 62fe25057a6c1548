package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dropDatabas3/ringauth/internal/observability/logger"
	"github.com/dropDatabas3/ringauth/internal/saga"
	"github.com/dropDatabas3/ringauth/internal/security/password"
	"github.com/dropDatabas3/ringauth/internal/store"
	"github.com/dropDatabas3/ringauth/internal/validation"
)

// Nombres de pasos.
const (
	StepValidate   = "validate-credentials"
	StepLocate     = "locate-node"
	StepCreateUser = "create-user"
	StepVerify     = "verify-credentials"
	StepCacheToken = "cache-token"
)

// Register crea el usuario y cachea su token en el nodo dueño del username.
// El nodo se resuelve antes de escribir nada; si cachear el token falla el
// usuario creado se borra.
func (s *Service) Register(ctx context.Context, creds validation.Credentials) (*Session, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("Register"), logger.Username(creds.Username))

	// estado de esta ejecución; cada Register arma su propia saga
	var (
		p      *placement
		userID string
	)
	def, err := s.newSaga("register").
		AddStep(StepValidate, func(ctx context.Context) (any, error) {
			return nil, s.d.Validator.Credentials(creds)
		}, nil).
		AddStep(StepLocate, func(ctx context.Context) (any, error) {
			var err error
			p, err = s.locate(ctx, creds.Username)
			return p, err
		}, nil).
		AddStep(StepCreateUser, func(ctx context.Context) (any, error) {
			hash, err := password.Hash(s.d.Hash, creds.Password)
			if err != nil {
				return nil, err
			}
			userID, err = s.d.Users.Insert(ctx, &store.User{Username: creds.Username, PasswordHash: hash})
			if err != nil {
				return nil, err
			}
			return userID, nil
		}, func(ctx context.Context, result any) error {
			id, _ := result.(string)
			err := s.d.Users.Delete(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}).
		AddStep(StepCacheToken, func(ctx context.Context) (any, error) {
			return s.cacheToken(ctx, p, userID, creds.Username)
		}, s.evictToken).
		Build()
	if err != nil {
		return nil, err
	}

	exec, err := def.Execute(ctx)
	if err != nil {
		logFailure(log, exec, err)
		return nil, mapError(err)
	}
	sess := exec.Result(3).(*Session)
	log.Info("user registered", logger.UserID(sess.UserID), logger.Node(sess.Node))
	return sess, nil
}

// Login verifica las credenciales y cachea un token nuevo en el nodo dueño.
func (s *Service) Login(ctx context.Context, creds validation.Credentials) (*Session, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("Login"), logger.Username(creds.Username))

	var (
		p *placement
		u *store.User
	)
	def, err := s.newSaga("login").
		AddStep(StepLocate, func(ctx context.Context) (any, error) {
			var err error
			p, err = s.locate(ctx, creds.Username)
			return p, err
		}, nil).
		AddStep(StepVerify, func(ctx context.Context) (any, error) {
			if creds.Username == "" || creds.Password == "" {
				return nil, ErrInvalidLogin
			}
			var err error
			u, err = s.d.Users.FindByUsername(ctx, creds.Username)
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrInvalidLogin
			}
			if err != nil {
				return nil, err
			}
			if !password.Verify(creds.Password, u.PasswordHash) {
				return nil, ErrInvalidLogin
			}
			return u.ID, nil
		}, nil).
		AddStep(StepCacheToken, func(ctx context.Context) (any, error) {
			return s.cacheToken(ctx, p, u.ID, u.Username)
		}, s.evictToken).
		Build()
	if err != nil {
		return nil, err
	}

	exec, err := def.Execute(ctx)
	if err != nil {
		logFailure(log, exec, err)
		return nil, mapError(err)
	}
	sess := exec.Result(2).(*Session)
	log.Info("user logged in", logger.UserID(sess.UserID), logger.Node(sess.Node))
	return sess, nil
}

// logFailure: rechazos del cliente a Info, compensación incompleta a Error.
func logFailure(log *zap.Logger, exec *saga.Execution, err error) {
	fields := []zap.Field{logger.ExecutionID(exec.ID), logger.StepIndex(saga.FailedStep(err)), logger.Err(err)}
	switch {
	case saga.IsCompensationIncomplete(err):
		log.Error("saga failed, compensation incomplete", fields...)
	case errors.Is(err, ErrInvalidLogin), errors.Is(err, ErrInvalidCredentials), errors.Is(err, store.ErrConflict):
		log.Info("request rejected", fields...)
	default:
		log.Warn("saga failed", fields...)
	}
}
