package helpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateClaims viaja en el parámetro `state` del flujo OAuth2 como JWT HS256:
// ata el callback al servicio que inició el flujo y arrastra el redirect
// post-login sin guardarlo server-side.
type StateClaims struct {
	jwt.RegisteredClaims
	Service string `json:"svc"`
	Next    string `json:"next,omitempty"`
	Nonce   string `json:"nonce"`
}

// SignState emite el JWT de state.
func SignState(secret, service, next string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("state secret not configured")
	}
	now := time.Now()
	claims := StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Service: service,
		Next:    next,
		Nonce:   strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseState valida firma y expiración y retorna los claims.
func ParseState(secret, token string) (*StateClaims, error) {
	var claims StateClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
