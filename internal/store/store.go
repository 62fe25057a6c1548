// Package store define el acceso a usuarios y el registro de adapters.
//
// Cada driver (memory, postgres) se registra en init() y se abre con Open.
package store

import (
	"context"
	"errors"
	"time"
)

// Errores comunes del DAL.
var (
	// ErrNotFound el usuario no existe.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict ya existe un usuario con ese username.
	ErrConflict = errors.New("store: conflict")

	// ErrUnknownDriver no hay adapter registrado con ese nombre.
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// IsNotFound helper para verificar si el error es por usuario inexistente.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict helper para verificar si el error es por username duplicado.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// User es un usuario registrado. PasswordHash es un PHC string (argon2id) o un
// hash bcrypt legacy.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore es el repositorio de usuarios que usan los flujos de auth.
type UserStore interface {
	// FindByUsername retorna ErrNotFound si no existe.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Insert crea el usuario y retorna su ID. Si u.ID está vacío se genera uno.
	// Username duplicado → ErrConflict.
	Insert(ctx context.Context, u *User) (string, error)

	// Delete elimina por ID. Retorna ErrNotFound si no existe.
	Delete(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}
