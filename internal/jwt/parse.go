package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// leeway tolerancia para exp/nbf.
const leeway = 30 * time.Second

// Parse valida firma (HS256), iss, exp y nbf. Retorna la identidad y las claims.
func (i *Issuer) Parse(token string) (Identity, *Claims, error) {
	claims := &Claims{}
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(leeway),
		jwtv5.WithTimeFunc(i.clock),
		jwtv5.WithExpirationRequired(),
	}
	if i.Iss != "" {
		opts = append(opts, jwtv5.WithIssuer(i.Iss))
	}

	tok, err := jwtv5.ParseWithClaims(token, claims, func(*jwtv5.Token) (any, error) {
		return i.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenInvalidIssuer) {
			return Identity{}, nil, ErrInvalidIssuer
		}
		return Identity{}, nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return Identity{}, nil, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Username: claims.Name}, claims, nil
}
