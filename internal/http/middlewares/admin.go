package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/ringauth/internal/http/errors"
)

// RequireAdminToken exige "Authorization: Bearer <token>". Con token vacío no
// protege nada (modo desarrollo).
func RequireAdminToken(token string) Middleware {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
				httperrors.WriteError(w, httperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
