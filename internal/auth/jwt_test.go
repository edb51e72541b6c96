package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equilibra/internal/auth"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)

	token, err := issuer.Generate(123456789)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), userID)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	other := auth.NewTokenIssuer("another-secret", 24)

	token, err := issuer.Generate(1)
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": "1",
		"exp":     jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)

	_, err := issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenIssuer_NonNumericSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": "abc",
		"exp":     jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
