package servicetoken

import (
	"testing"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "signing-secret-para-tests"

func TestMint_ClaimsAndExpiry(t *testing.T) {
	m, err := NewMinter(testSecret)
	require.NoError(t, err)

	signed, err := m.Mint("user-42")
	require.NoError(t, err)

	// Verificación del lado receptor (el minter no se auto-verifica).
	tk, err := jwtv5.Parse(signed, func(t *jwtv5.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, tk.Valid)

	claims := tk.Claims.(jwtv5.MapClaims)
	assert.Equal(t, "user-42", claims["sub"])

	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	assert.Equal(t, int64(300), exp-iat, "exp debe ser iat+300s")
}

func TestMint_WrongSecretFailsVerification(t *testing.T) {
	m, err := NewMinter(testSecret)
	require.NoError(t, err)

	signed, err := m.Mint("user-42")
	require.NoError(t, err)

	_, err = jwtv5.Parse(signed, func(t *jwtv5.Token) (any, error) {
		return []byte("otro-secreto-distinto"), nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	assert.Error(t, err)
}

func TestNewMinter_RejectsShortSecret(t *testing.T) {
	_, err := NewMinter("corto")
	assert.ErrorIs(t, err, ErrNoSigningSecret)
}
