// Package pg implementa store.UserStore sobre PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/ringauth/internal/store"
)

func init() {
	store.Register("postgres", func(ctx context.Context, cfg store.Config) (store.UserStore, error) {
		return New(ctx, cfg)
	})
}

// Store es el repositorio de usuarios en PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New abre el pool, verifica la conexión y, si cfg.Migrate, aplica las
// migraciones embebidas.
func New(ctx context.Context, cfg store.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.Migrate {
		if _, err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewFromPool envuelve un pool existente.
func NewFromPool(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	const q = `SELECT id, username, password_hash, created_at FROM app_user WHERE username = $1`
	var (
		u  store.User
		id uuid.UUID
	)
	err := s.pool.QueryRow(ctx, q, username).Scan(&id, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = id.String()
	return &u, nil
}

func (s *Store) Insert(ctx context.Context, u *store.User) (string, error) {
	id := uuid.New()
	if u.ID != "" {
		parsed, err := uuid.Parse(u.ID)
		if err != nil {
			return "", fmt.Errorf("pg: invalid user id %q: %w", u.ID, err)
		}
		id = parsed
	}
	const q = `INSERT INTO app_user (id, username, password_hash) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, q, id, u.Username, u.PasswordHash); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: username %s", store.ErrConflict, u.Username)
		}
		return "", err
	}
	return id.String(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM app_user WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" // unique_violation
}
