package connect

import (
	"context"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStateSecret = "secreto-de-state-para-tests"

func TestStateCodec_SignParseRoundTrip(t *testing.T) {
	codec, err := NewStateCodec(testStateSecret)
	require.NoError(t, err)

	userID := uuid.NewString()
	verifier, err := NewCodeVerifier()
	require.NoError(t, err)

	raw, err := codec.Sign(StateClaims{
		UserID:   userID,
		Provider: "twitter",
		Nonce:    NewNonce(),
		Verifier: verifier,
	})
	require.NoError(t, err)

	claims, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "twitter", claims.Provider)
	assert.Equal(t, verifier, claims.Verifier)
	assert.NotEmpty(t, claims.Nonce)
}

func TestStateCodec_RejectsShortSecret(t *testing.T) {
	_, err := NewStateCodec("corto")
	assert.Error(t, err)
}

func TestStateCodec_RejectsWrongSignature(t *testing.T) {
	codec, err := NewStateCodec(testStateSecret)
	require.NoError(t, err)
	otro, err := NewStateCodec("otro-secreto-igual-de-largo")
	require.NoError(t, err)

	raw, err := otro.Sign(StateClaims{UserID: uuid.NewString(), Provider: "youtube", Nonce: NewNonce()})
	require.NoError(t, err)

	_, err = codec.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateCodec_AcceptsOpaqueSubjects(t *testing.T) {
	codec, err := NewStateCodec(testStateSecret)
	require.NoError(t, err)

	// el backend de identidad decide la forma del subject: uuid o slug,
	// ambos tienen que pasar
	for _, sub := range []string{"user-1", uuid.NewString(), "cliente_42"} {
		raw, err := codec.Sign(StateClaims{UserID: sub, Provider: "twitter", Nonce: NewNonce()})
		require.NoError(t, err)

		claims, err := codec.Parse(raw)
		require.NoError(t, err, "subject %q debería ser aceptado", sub)
		assert.Equal(t, sub, claims.UserID)
	}
}

func TestStateCodec_RejectsMalformedSubject(t *testing.T) {
	codec, err := NewStateCodec(testStateSecret)
	require.NoError(t, err)

	malos := []string{
		"user|evil|payload", // delimitador inyectado
		"user 1",            // espacios
		"user\nuno",         // control chars
		strings.Repeat("a", 129),
	}
	for _, sub := range malos {
		raw, err := codec.Sign(StateClaims{UserID: sub, Provider: "facebook", Nonce: NewNonce()})
		require.NoError(t, err)

		_, err = codec.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidState, "subject %q debería rechazarse", sub)
	}
}

func TestStateCodec_RejectsExpired(t *testing.T) {
	codec, err := NewStateCodec(testStateSecret)
	require.NoError(t, err)

	// token firmado a mano con exp en el pasado
	past := time.Now().UTC().Add(-time.Hour)
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss":      stateIssuer,
		"aud":      stateAudience,
		"sub":      uuid.NewString(),
		"provider": "twitter",
		"nonce":    NewNonce(),
		"iat":      past.Unix(),
		"exp":      past.Add(stateTTL).Unix(),
	})
	raw, err := tk.SignedString([]byte(testStateSecret))
	require.NoError(t, err)

	_, err = codec.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNewCodeVerifier_LengthAndUniqueness(t *testing.T) {
	a, err := NewCodeVerifier()
	require.NoError(t, err)
	b, err := NewCodeVerifier()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.Len(t, b, 43)
	assert.NotEqual(t, a, b)
}

func TestChallengeS256_Deterministic(t *testing.T) {
	v, err := NewCodeVerifier()
	require.NoError(t, err)
	assert.Equal(t, ChallengeS256(v), ChallengeS256(v))
	assert.NotEqual(t, v, ChallengeS256(v))
}

func TestMemoryNonceStore_SingleUse(t *testing.T) {
	s := NewMemoryNonceStore()
	ctx := context.Background()
	nonce := NewNonce()

	assert.True(t, s.Consume(ctx, nonce))
	// el replay del mismo nonce se rechaza
	assert.False(t, s.Consume(ctx, nonce))
	// otro nonce sigue pasando
	assert.True(t, s.Consume(ctx, NewNonce()))
}
