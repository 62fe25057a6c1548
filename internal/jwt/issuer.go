// Package jwt emite y valida los tokens de sesión (HS256).
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL vida de un token de sesión.
const DefaultTTL = 24 * time.Hour

var (
	ErrEmptySecret   = errors.New("jwt: empty signing secret")
	ErrEmptySubject  = errors.New("jwt: identity without user id")
	ErrInvalidToken  = errors.New("jwt: invalid token")
	ErrInvalidIssuer = errors.New("jwt: invalid issuer")
)

// Identity es lo que se firma en el token.
type Identity struct {
	UserID   string
	Username string
}

// Claims del token de sesión: registradas + name.
type Claims struct {
	Name string `json:"name"`
	jwtv5.RegisteredClaims
}

// Issuer firma tokens HS256. No tiene estado mutable: Issue es función de la
// identidad y del reloj.
type Issuer struct {
	Iss    string
	Secret []byte
	TTL    time.Duration

	// now se reemplaza en tests
	now func() time.Time
}

// NewIssuer valida el secreto y aplica DefaultTTL si ttl <= 0.
func NewIssuer(iss string, secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{Iss: iss, Secret: secret, TTL: ttl, now: time.Now}, nil
}

func (i *Issuer) clock() time.Time {
	if i.now != nil {
		return i.now().UTC()
	}
	return time.Now().UTC()
}

// Issue emite un token para id. Retorna el token firmado y su expiración.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	if id.UserID == "" {
		return "", time.Time{}, ErrEmptySubject
	}
	now := i.clock()
	exp := now.Add(i.TTL).Truncate(time.Second)

	claims := Claims{
		Name: id.Username,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   id.UserID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
