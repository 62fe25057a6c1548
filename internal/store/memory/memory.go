// Package memory implementa store.UserStore en memoria. Útil para desarrollo y
// testing.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/ringauth/internal/store"
)

func init() {
	store.Register("memory", func(context.Context, store.Config) (store.UserStore, error) {
		return New(), nil
	})
}

// Store guarda usuarios en mapas protegidos por un RWMutex.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]*store.User
	byName map[string]string // username → id
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		byID:   make(map[string]*store.User),
		byName: make(map[string]string),
	}
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *s.byID[id]
	return &u, nil
}

func (s *Store) Insert(ctx context.Context, u *store.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[u.Username]; exists {
		return "", fmt.Errorf("%w: username %s", store.ErrConflict, u.Username)
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if _, exists := s.byID[cp.ID]; exists {
		return "", fmt.Errorf("%w: id %s", store.ErrConflict, cp.ID)
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.byID[cp.ID] = &cp
	s.byName[cp.Username] = cp.ID
	return cp.ID, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.byName, u.Username)
	delete(s.byID, id)
	return nil
}

// Len cantidad de usuarios.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
