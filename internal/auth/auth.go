// Package auth implementa register, login y logout como sagas sobre el store
// de usuarios y el pool de nodos de cache.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/ringauth/internal/admission"
	"github.com/dropDatabas3/ringauth/internal/cache"
	"github.com/dropDatabas3/ringauth/internal/jwt"
	"github.com/dropDatabas3/ringauth/internal/ring"
	"github.com/dropDatabas3/ringauth/internal/saga"
	"github.com/dropDatabas3/ringauth/internal/security/password"
	"github.com/dropDatabas3/ringauth/internal/store"
	"github.com/dropDatabas3/ringauth/internal/validation"
)

// Errores del servicio. Todos se pueden chequear con errors.Is aunque vengan
// envueltos junto al *saga.Error.
var (
	ErrInvalidCredentials = validation.ErrInvalidCredentials
	ErrUserExists         = errors.New("auth: user already exists")
	ErrInvalidLogin       = errors.New("auth: invalid username or password")
	ErrNoCacheNode        = errors.New("auth: no cache node available")
	ErrBusy               = errors.New("auth: too many concurrent requests")
	ErrNoSession          = errors.New("auth: no cached session")
	ErrUnauthenticated    = errors.New("auth: invalid or revoked token")
)

// NodeResolver resuelve el nodo de cache dueño de una key.
type NodeResolver interface {
	ForKey(ctx context.Context, key string) (node string, c cache.Client, err error)
}

// TokenIssuer emite y valida tokens de sesión.
type TokenIssuer interface {
	Issue(id jwt.Identity) (string, time.Time, error)
	Parse(token string) (jwt.Identity, *jwt.Claims, error)
}

// Deps dependencias del Service. Limiter, Observer y Validator son opcionales.
type Deps struct {
	Users     store.UserStore
	Pool      NodeResolver
	Issuer    TokenIssuer
	Limiter   admission.Limiter
	Observer  saga.Observer
	Validator *validation.Validator
	// TokenTTL vida del token cacheado; default jwt.DefaultTTL.
	TokenTTL time.Duration
	Hash     password.Params
}

// Service orquesta los flujos de auth.
type Service struct {
	d Deps
}

// NewService valida las dependencias obligatorias.
func NewService(d Deps) (*Service, error) {
	if d.Users == nil || d.Pool == nil || d.Issuer == nil {
		return nil, errors.New("auth: Users, Pool and Issuer are required")
	}
	if d.Limiter == nil {
		d.Limiter = admission.Unlimited()
	}
	if d.Validator == nil {
		d.Validator = validation.New(password.Policy{})
	}
	if d.TokenTTL <= 0 {
		d.TokenTTL = jwt.DefaultTTL
	}
	if d.Hash == (password.Params{}) {
		d.Hash = password.Default
	}
	return &Service{d: d}, nil
}

// Session es lo que devuelven register y login.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Node      string    `json:"node"`
}

// placement nodo resuelto para un username; lo comparten los pasos de una saga.
type placement struct {
	node   string
	client cache.Client
}

func (s *Service) newSaga(name string) *saga.Builder {
	return saga.NewBuilder(name, saga.WithLimiter(s.d.Limiter), saga.WithObserver(s.d.Observer))
}

func (s *Service) locate(ctx context.Context, username string) (*placement, error) {
	node, c, err := s.d.Pool.ForKey(ctx, username)
	if err != nil {
		return nil, err
	}
	return &placement{node: node, client: c}, nil
}

// cacheToken emite el token y lo guarda en el nodo dueño de username.
func (s *Service) cacheToken(ctx context.Context, p *placement, userID, username string) (*Session, error) {
	tok, exp, err := s.d.Issuer.Issue(jwt.Identity{UserID: userID, Username: username})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	raw, err := encodeToken(CachedToken{Token: tok, UserID: userID, Username: username, ExpiresAt: exp})
	if err != nil {
		return nil, err
	}
	if err := p.client.Set(ctx, TokenKey(username), raw, s.d.TokenTTL); err != nil {
		return nil, fmt.Errorf("cache token on %s: %w", p.node, err)
	}
	return &Session{UserID: userID, Username: username, Token: tok, ExpiresAt: exp, Node: p.node}, nil
}

func (s *Service) evictToken(ctx context.Context, result any) error {
	sess, ok := result.(*Session)
	if !ok || sess == nil {
		return nil
	}
	c, err := s.resolveNode(ctx, sess)
	if err != nil {
		return err
	}
	return c.Delete(ctx, TokenKey(sess.Username))
}

// resolveNode vuelve a resolver el cliente del nodo donde se cacheó sess.
func (s *Service) resolveNode(ctx context.Context, sess *Session) (cache.Client, error) {
	node, c, err := s.d.Pool.ForKey(ctx, sess.Username)
	if err != nil {
		return nil, err
	}
	if node != sess.Node {
		// topología cambió entre el Set y la compensación
		return nil, fmt.Errorf("auth: token for %s cached on %s, ring now points to %s", sess.Username, sess.Node, node)
	}
	return c, nil
}

// mapError traduce el error de una saga a los sentinels del paquete sin perder
// el *saga.Error de la cadena.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, saga.ErrAdmission):
		return fmt.Errorf("%w: %w", ErrBusy, err)
	case errors.Is(err, ring.ErrRingUnavailable), errors.Is(err, cache.ErrNodeUnavailable), errors.Is(err, cache.ErrUnknownNode):
		return fmt.Errorf("%w: %w", ErrNoCacheNode, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrUserExists, err)
	}
	return err
}
