package exchange

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"AutoTrader/internal/credentials"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Authorizer produces the bearer token for an authenticated request.
// query is the unescaped query string (or form-encoded body) of the request.
type Authorizer interface {
	Authorize(query string) (string, error)
}

// JWTAuthorizer signs HS256 tokens carrying the access key, a fresh nonce
// and the SHA512 hash of the request parameters.
type JWTAuthorizer struct {
	Credentials credentials.Provider
}

// NewJWTAuthorizer creates an authorizer backed by provider.
func NewJWTAuthorizer(provider credentials.Provider) *JWTAuthorizer {
	return &JWTAuthorizer{Credentials: provider}
}

func (a *JWTAuthorizer) Authorize(query string) (string, error) {
	pair, err := a.Credentials.Credentials()
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"access_key": pair.AccessKey,
		"nonce":      uuid.NewString(),
	}
	if query != "" {
		sum := sha512.Sum512([]byte(query))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(pair.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
