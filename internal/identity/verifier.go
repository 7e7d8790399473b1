// Package identity resuelve el sujeto detrás de un bearer token de la
// plataforma. El backend de identidad emite JWT firmados con un secreto
// compartido; acá solo se verifica y se extrae el subject.
package identity

import (
	"context"
	"errors"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("identity: bearer token inválido")

// Verifier valida un bearer token y resuelve el subject id.
type Verifier interface {
	Verify(ctx context.Context, token string) (subject string, err error)
}

// JWTVerifier verifica HS256 contra el secreto de sesión de la plataforma.
type JWTVerifier struct {
	Secret []byte
	Issuer string // opcional; vacío = no se valida iss
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{Secret: []byte(secret), Issuer: issuer}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (string, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{"HS256"})}
	if v.Issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(v.Issuer))
	}
	tk, err := jwtv5.Parse(token, func(t *jwtv5.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil || !tk.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
