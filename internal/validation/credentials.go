// Package validation valida la entrada de los flujos de auth.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dropDatabas3/ringauth/internal/security/password"
)

// ErrInvalidCredentials credenciales mal formadas. Los errores de Credentials
// lo envuelven.
var ErrInvalidCredentials = errors.New("invalid credentials")

// usernameRe letras, dígitos y ._-
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Credentials username + password de register/login.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=64,username"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// FieldError describe un campo rechazado.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error lista los campos rechazados.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Rule)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidCredentials, strings.Join(parts, ", "))
}

func (e *Error) Unwrap() error { return ErrInvalidCredentials }

// Validator valida credenciales con una política de password opcional.
type Validator struct {
	v      *validator.Validate
	policy password.Policy
}

// New registra el tag "username". policy puede ser el valor cero.
func New(policy password.Policy) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	// usar el nombre json en los errores
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v, policy: policy}
}

// Credentials valida c. Retorna *Error (que envuelve ErrInvalidCredentials) o nil.
func (x *Validator) Credentials(c Credentials) error {
	var fields []FieldError
	if err := x.v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	if len(fields) == 0 {
		for _, reason := range x.policy.Validate(c.Password) {
			fields = append(fields, FieldError{Field: "password", Rule: reason})
		}
	}
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}
