// Package servicetoken emite aserciones firmadas de corta vida para llamadas
// service-to-service (motor de workflows). Operación puramente criptográfica:
// no persiste nada y no se auto-verifica — la verificación es del receptor.
package servicetoken

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// TTL máximo de la aserción. Nunca más de 5 minutos.
const TTL = 300 * time.Second

var ErrNoSigningSecret = errors.New("servicetoken: signing secret no configurado")

// Minter firma tokens de servicio con un secreto simétrico del servidor.
type Minter struct {
	secret []byte
}

func NewMinter(secret string) (*Minter, error) {
	if len(secret) < 16 {
		return nil, ErrNoSigningSecret
	}
	return &Minter{secret: []byte(secret)}, nil
}

// Mint emite {sub, iat, exp = iat+300s} firmado HS256.
// El token jamás debe volver en un response body fuera de tooling de test.
func (m *Minter) Mint(subjectID string) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"sub": subjectID,
		"iat": now.Unix(),
		"exp": now.Add(TTL).Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(m.secret)
}
