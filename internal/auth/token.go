package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrNoJWKS         = errors.New("no JWKS URL provided")
	ErrWrongAudience  = errors.New("token audience mismatch")
	ErrCallerNotAllow = errors.New("caller is not allowed")
)

// EventClaims are the claims of a Google-signed OIDC token attached to push
// deliveries (Pub/Sub push, Eventarc, Cloud Scheduler).
type EventClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*EventClaims, error)
}
