package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dropDatabas3/ringauth/internal/cache"
)

// tokenKeyPrefix + username es la key del token en el nodo de cache.
const tokenKeyPrefix = "jwt_token_"

// TokenKey retorna la key bajo la que se guarda el token de username dentro
// del nodo. El nodo se elige hasheando username, no esta key.
func TokenKey(username string) string { return tokenKeyPrefix + username }

// CachedToken es lo que se guarda en el nodo, codificado con msgpack.
type CachedToken struct {
	Token     string    `msgpack:"t"`
	UserID    string    `msgpack:"u"`
	Username  string    `msgpack:"n"`
	ExpiresAt time.Time `msgpack:"e"`
}

func encodeToken(ct CachedToken) (string, error) {
	b, err := msgpack.Marshal(&ct)
	if err != nil {
		return "", fmt.Errorf("encode cached token: %w", err)
	}
	return string(b), nil
}

func decodeToken(raw string) (*CachedToken, error) {
	var ct CachedToken
	if err := msgpack.Unmarshal([]byte(raw), &ct); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	return &ct, nil
}

// CachedSession lee el token cacheado de username desde su nodo.
func (s *Service) CachedSession(ctx context.Context, username string) (*CachedToken, error) {
	p, err := s.locate(ctx, username)
	if err != nil {
		return nil, mapError(err)
	}
	raw, err := p.client.Get(ctx, TokenKey(username))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, mapError(err)
	}
	return decodeToken(raw)
}

// Logout borra el token cacheado de username. Sin token cacheado no es error.
func (s *Service) Logout(ctx context.Context, username string) error {
	p, err := s.locate(ctx, username)
	if err != nil {
		return mapError(err)
	}
	if err := p.client.Delete(ctx, TokenKey(username)); err != nil {
		return mapError(err)
	}
	return nil
}

// Authenticate valida la firma de token y exige que sea el que está cacheado en
// el nodo dueño del usuario: un logout o un login posterior lo invalidan.
func (s *Service) Authenticate(ctx context.Context, token string) (*CachedToken, error) {
	id, _, err := s.d.Issuer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	ct, err := s.CachedSession(ctx, id.Username)
	if errors.Is(err, ErrNoSession) {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if err != nil {
		return nil, err
	}
	if ct.Token != token {
		return nil, fmt.Errorf("%w: token superseded", ErrUnauthenticated)
	}
	return ct, nil
}
