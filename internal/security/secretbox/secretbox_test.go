package secretbox

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestSecret(t *testing.T) {
	t.Helper()
	UnsafeResetForTests()
	os.Setenv("SOCIALVAULT_MASTER_SECRET", "clave-de-prueba-suficientemente-larga")
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	setTestSecret(t)

	msg := "sk-ant-api03-un-secreto ✓"
	blob, err := Encrypt(msg)
	require.NoError(t, err)

	pt, err := Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, msg, pt)
}

func TestEncrypt_DistinctBlobs(t *testing.T) {
	setTestSecret(t)

	a, err := Encrypt("mismo texto")
	require.NoError(t, err)
	b, err := Encrypt("mismo texto")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "dos cifrados del mismo plaintext deben diferir")

	pa, err := Decrypt(a)
	require.NoError(t, err)
	pb, err := Decrypt(b)
	require.NoError(t, err)
	assert.Equal(t, "mismo texto", pa)
	assert.Equal(t, "mismo texto", pb)
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	setTestSecret(t)

	blob, err := Encrypt("top secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// flip del último byte (ciphertext)
	raw[len(raw)-1] ^= 0x01
	corrupted := base64.StdEncoding.EncodeToString(raw)

	_, err = Decrypt(corrupted)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestDecrypt_DetectsTagTamper(t *testing.T) {
	setTestSecret(t)

	blob, err := Encrypt("otro secreto")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// flip de un byte del tag (offsets 12..27)
	raw[12] ^= 0x80
	_, err = Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestDecrypt_GarbageBlob(t *testing.T) {
	setTestSecret(t)

	_, err := Decrypt("no-es-base64!!!")
	assert.ErrorIs(t, err, ErrIntegrity)

	_, err = Decrypt(base64.StdEncoding.EncodeToString([]byte("corto")))
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestEncrypt_ErrorWhenNotConfigured(t *testing.T) {
	UnsafeResetForTests()
	os.Unsetenv("SOCIALVAULT_MASTER_SECRET")

	_, err := Encrypt("x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	UnsafeResetForTests()
	os.Setenv("SOCIALVAULT_MASTER_SECRET", "corta")
	_, err = Encrypt("x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLastFour(t *testing.T) {
	assert.Equal(t, "••••6789", LastFour("sk-123456789"))
	assert.Equal(t, "••••abcd", LastFour("abcd"))
	assert.Equal(t, "••••", LastFour("abc"))
	assert.Equal(t, "••••", LastFour(""))
}

func TestValidateFormat(t *testing.T) {
	assert.True(t, ValidateFormat("openai", "sk-abcdefghijklmnopqrstuv"))
	assert.False(t, ValidateFormat("openai", "pk-abcdefghijklmnopqrstuv"))
	assert.True(t, ValidateFormat("anthropic", "sk-ant-REDACTED"))
	assert.False(t, ValidateFormat("anthropic", "sk-abcdefghijklmnopqrstuv"))
	assert.True(t, ValidateFormat("deepseek", "sk-0123456789abcdef0123456789abcdef"))
	assert.False(t, ValidateFormat("deepseek", "sk-XYZ"))
	// proveedor desconocido: pre-filtro genérico
	assert.True(t, ValidateFormat("custom", "cualquier-key-larga"))
	assert.False(t, ValidateFormat("custom", "corta"))
	assert.False(t, ValidateFormat("custom", "con espacios no va"))
}
