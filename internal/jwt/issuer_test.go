package jwt

import (
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedIssuer(t *testing.T, at time.Time) *Issuer {
	t.Helper()
	i, err := NewIssuer("ringauth", []byte("test-secret-0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	i.now = func() time.Time { return at }
	return i
}

func TestIssueParse_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := fixedIssuer(t, now)

	tok, exp, err := i.Issue(Identity{UserID: "u-1", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)
	assert.Len(t, strings.Split(tok, "."), 3)

	id, claims, err := i.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Username: "alice"}, id)
	assert.Equal(t, "ringauth", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, exp, claims.ExpiresAt.Time.UTC())
}

func TestIssue_UniqueJTI(t *testing.T) {
	i := fixedIssuer(t, time.Now())
	a, _, err := i.Issue(Identity{UserID: "u", Username: "x"})
	require.NoError(t, err)
	b, _, err := i.Issue(Identity{UserID: "u", Username: "x"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIssue_RequiresSubject(t *testing.T) {
	i := fixedIssuer(t, time.Now())
	_, _, err := i.Issue(Identity{Username: "nobody"})
	require.ErrorIs(t, err, ErrEmptySubject)
}

func TestNewIssuer_Defaults(t *testing.T) {
	_, err := NewIssuer("x", nil, 0)
	require.ErrorIs(t, err, ErrEmptySecret)

	i, err := NewIssuer("x", []byte("s"), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, i.TTL)
}

func TestParse_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	i := fixedIssuer(t, issued)
	tok, _, err := i.Issue(Identity{UserID: "u", Username: "x"})
	require.NoError(t, err)

	i.now = time.Now
	_, _, err = i.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwtv5.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	now := time.Now()
	i := fixedIssuer(t, now)
	tok, _, err := i.Issue(Identity{UserID: "u", Username: "x"})
	require.NoError(t, err)

	other := fixedIssuer(t, now)
	other.Secret = []byte("another-secret")
	_, _, err = other.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_WrongIssuer(t *testing.T) {
	now := time.Now()
	i := fixedIssuer(t, now)
	tok, _, err := i.Issue(Identity{UserID: "u", Username: "x"})
	require.NoError(t, err)

	other := fixedIssuer(t, now)
	other.Iss = "someone-else"
	_, _, err = other.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	i := fixedIssuer(t, time.Now())
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, jwtv5.MapClaims{"sub": "u", "iss": "ringauth"})
	s, err := tk.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = i.Parse(s)
	require.ErrorIs(t, err, ErrInvalidToken)
}
