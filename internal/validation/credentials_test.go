package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ringauth/internal/security/password"
)

func TestCredentials_Valid(t *testing.T) {
	v := New(password.Policy{})
	for _, c := range []Credentials{
		{Username: "alice", Password: "s3cretpass"},
		{Username: "a.b-c_d", Password: "12345678"},
		{Username: strings.Repeat("x", 64), Password: strings.Repeat("p", 128)},
	} {
		assert.NoError(t, v.Credentials(c), c.Username)
	}
}

func TestCredentials_Invalid(t *testing.T) {
	v := New(password.Policy{})
	cases := []struct {
		name  string
		c     Credentials
		field string
		rule  string
	}{
		{"empty username", Credentials{Password: "12345678"}, "username", "required"},
		{"short username", Credentials{Username: "ab", Password: "12345678"}, "username", "min"},
		{"long username", Credentials{Username: strings.Repeat("x", 65), Password: "12345678"}, "username", "max"},
		{"bad chars", Credentials{Username: "bob smith", Password: "12345678"}, "username", "username"},
		{"short password", Credentials{Username: "bob", Password: "1234567"}, "password", "min"},
		{"long password", Credentials{Username: "bob", Password: strings.Repeat("p", 129)}, "password", "max"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Credentials(tc.c)
			require.ErrorIs(t, err, ErrInvalidCredentials)

			var verr *Error
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, FieldError{Field: tc.field, Rule: tc.rule}, verr.Fields[0])
			assert.Contains(t, err.Error(), tc.field+":"+tc.rule)
		})
	}
}

func TestCredentials_Policy(t *testing.T) {
	v := New(password.Policy{RequireDigit: true, Blacklist: password.NewBlacklist("password1")})

	err := v.Credentials(Credentials{Username: "bob", Password: "onlyletters"})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []FieldError{{Field: "password", Rule: "missing_digit"}}, verr.Fields)

	err = v.Credentials(Credentials{Username: "bob", Password: "Password1"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []FieldError{{Field: "password", Rule: "blacklisted"}}, verr.Fields)

	assert.NoError(t, v.Credentials(Credentials{Username: "bob", Password: "l0ngenough"}))
}
