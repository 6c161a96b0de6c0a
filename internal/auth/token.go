package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 30 * 24 * time.Hour

var (
	// ErrMissingCredential means no bearer token was presented.
	ErrMissingCredential = errors.New("no credential provided")
	// ErrInvalidCredential means the token was malformed, expired, or
	// failed signature verification.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrUnknownPrincipal means the token verified but its user no
	// longer exists.
	ErrUnknownPrincipal = errors.New("unknown principal")
)

// Claims carries the authenticated user id alongside the registered
// JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// GenerateToken signs a bearer token for the given user id.
func GenerateToken(userID int64, secret []byte) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
		UserID: userID,
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and verifies a bearer token and returns the user
// id it encodes. Any parse or validation failure maps to
// ErrInvalidCredential.
func VerifyToken(tokenString string, secret []byte) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidCredential
	}
	return claims.UserID, nil
}
