// Package secretbox cifra secretos opacos (API keys) en reposo.
//
// Formato del blob: base64(IV ‖ tag ‖ ciphertext) con offsets fijos
// (IV 12 bytes, tag 16 bytes). AES-256-GCM con clave derivada por
// PBKDF2-SHA256 desde el secreto maestro del servidor.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	masterSecretEnvVar = "SOCIALVAULT_MASTER_SECRET"
	ivSize             = 12 // nonce GCM recomendado (96 bits)
	tagSize            = 16
	keySize            = 32 // AES-256
	minSecretLength    = 16
	kdfIterations      = 100_000
)

// Salt fijo del KDF: la entropía viene del secreto maestro, el salt solo
// separa el dominio de derivación de otros usos del mismo secreto.
var kdfSalt = []byte("socialvault.secretbox.v1")

// ErrNotConfigured: el secreto maestro falta o es demasiado corto. Fatal.
var ErrNotConfigured = errors.New("secretbox: master secret ausente o demasiado corto")

// ErrIntegrity: el blob fue alterado (tag GCM no verifica). Nunca se
// devuelve plaintext parcial.
var ErrIntegrity = errors.New("secretbox: integridad del blob comprometida")

var (
	derivedKey []byte
	keyOnce    sync.Once
	loadErr    error
	mu         sync.RWMutex
)

// ensureLoaded deriva la clave desde SOCIALVAULT_MASTER_SECRET una sola vez.
func ensureLoaded() error {
	keyOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv(masterSecretEnvVar))
		if len(secret) < minSecretLength {
			loadErr = fmt.Errorf("%w: %s requiere al menos %d caracteres", ErrNotConfigured, masterSecretEnvVar, minSecretLength)
			return
		}
		k := pbkdf2.Key([]byte(secret), kdfSalt, kdfIterations, keySize, sha256.New)
		mu.Lock()
		derivedKey = k
		mu.Unlock()
	})
	return loadErr
}

func aead() (cipher.AEAD, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}
	mu.RLock()
	key := make([]byte, len(derivedKey))
	copy(key, derivedKey)
	mu.RUnlock()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt cifra plaintext y devuelve base64(IV ‖ tag ‖ ciphertext).
// Cada llamada usa un IV fresco: dos cifrados del mismo texto difieren.
func Encrypt(plaintext string) (string, error) {
	gcm, err := aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("iv random: %w", err)
	}

	// Seal devuelve ct‖tag; el blob lleva tag antes del ct por offsets fijos.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, ivSize+tagSize+len(ct))
	blob = append(blob, iv...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt recibe base64(IV ‖ tag ‖ ciphertext) y devuelve el texto plano.
// Cualquier alteración del blob produce ErrIntegrity, sin plaintext.
func Decrypt(blob string) (string, error) {
	gcm, err := aead()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: base64 inválido", ErrIntegrity)
	}
	if len(raw) < ivSize+tagSize {
		return "", fmt.Errorf("%w: blob demasiado corto", ErrIntegrity)
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ct := raw[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	pt, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(pt), nil
}

const fixedMask = "••••"

// LastFour devuelve una vista enmascarada de ancho fijo para mostrar en UI.
// Nunca es reversible al secreto original.
func LastFour(secret string) string {
	if len(secret) < 4 {
		return fixedMask
	}
	return fixedMask + secret[len(secret)-4:]
}

// Pre-filtros de forma por proveedor de API key. Explícitamente NO son una
// frontera de seguridad: solo evitan guardar basura evidente.
var keyFormats = map[string]*regexp.Regexp{
	"openai":    regexp.MustCompile(`^sk-[A-Za-z0-9_-]{20,}$`),
	"anthropic": regexp.MustCompile(`^sk-ant-[A-Za-z0-9_-]{20,}$`),
	"deepseek":  regexp.MustCompile(`^sk-[a-f0-9]{32}$`),
}

var genericKeyRE = regexp.MustCompile(`^[\x21-\x7e]{8,512}$`)

// ValidateFormat chequea barato la forma del candidato para el proveedor.
func ValidateFormat(provider, candidate string) bool {
	if re, ok := keyFormats[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return re.MatchString(candidate)
	}
	return genericKeyRE.MatchString(candidate)
}

// --- Helpers para tests ---

// UnsafeResetForTests borra el estado interno. Usar sólo en tests.
func UnsafeResetForTests() {
	mu.Lock()
	derivedKey = nil
	mu.Unlock()
	keyOnce = sync.Once{}
	loadErr = nil
}
