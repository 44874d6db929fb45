package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwk"
	"golang.org/x/time/rate"
)

// GoogleJWKSURL publishes the keys Google signs OIDC identity tokens with.
const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// keyRefreshInterval bounds how often an unknown kid may trigger a JWKS fetch.
const keyRefreshInterval = time.Minute

var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// OIDCValidator verifies Google-signed identity tokens for a fixed audience,
// optionally restricted to a set of service account emails.
type OIDCValidator struct {
	mu      sync.RWMutex
	keySet  jwk.Set
	jwksURL string
	refresh *rate.Limiter

	audience      string
	allowedEmails map[string]struct{}
}

// NewOIDCValidator fetches the JWKS at jwksURL (GoogleJWKSURL when empty).
func NewOIDCValidator(ctx context.Context, jwksURL, audience string, allowedEmails []string) (*OIDCValidator, error) {
	if jwksURL == "" {
		jwksURL = GoogleJWKSURL
	}

	keySet, err := jwk.Fetch(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
	}

	v := NewOIDCValidatorWithKeys(keySet, audience, allowedEmails)
	v.jwksURL = jwksURL
	return v, nil
}

// NewOIDCValidatorWithKeys uses a fixed key set. Keys are never refreshed.
func NewOIDCValidatorWithKeys(keySet jwk.Set, audience string, allowedEmails []string) *OIDCValidator {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		if email != "" {
			allowed[email] = struct{}{}
		}
	}

	return &OIDCValidator{
		keySet:        keySet,
		refresh:       rate.NewLimiter(rate.Every(keyRefreshInterval), 1),
		audience:      audience,
		allowedEmails: allowed,
	}
}

// RefreshKeys refreshes the JWKS from the URL.
func (v *OIDCValidator) RefreshKeys(ctx context.Context) error {
	if v.jwksURL == "" {
		return ErrNoJWKS
	}

	keySet, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to refresh JWKS from %s: %w", v.jwksURL, err)
	}

	v.mu.Lock()
	v.keySet = keySet
	v.mu.Unlock()
	return nil
}

func (v *OIDCValidator) lookupKey(kid string) (jwk.Key, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.keySet == nil {
		return nil, false
	}
	return v.keySet.LookupKeyID(kid)
}

// ValidateToken checks signature, expiry, issuer, audience and caller. An
// unknown kid refreshes the key set at most once per keyRefreshInterval.
func (v *OIDCValidator) ValidateToken(ctx context.Context, tokenString string) (*EventClaims, error) {
	// Parse the header first to find the signing key.
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &EventClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse token header: %v", ErrInvalidToken, err)
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: token header missing kid", ErrInvalidToken)
	}

	key, found := v.lookupKey(kid)
	if !found {
		if v.jwksURL == "" || !v.refresh.Allow() {
			return nil, fmt.Errorf("%w: key with ID %s not found", ErrInvalidToken, kid)
		}
		if err := v.RefreshKeys(ctx); err != nil {
			return nil, fmt.Errorf("%w: key with ID %s not found and failed to refresh keys: %v", ErrInvalidToken, kid, err)
		}
		if key, found = v.lookupKey(kid); !found {
			return nil, fmt.Errorf("%w: key with ID %s not found", ErrInvalidToken, kid)
		}
	}

	var rawKey interface{}
	if err := key.Raw(&rawKey); err != nil {
		return nil, fmt.Errorf("%w: failed to get raw key: %v", ErrInvalidToken, err)
	}

	validated, err := jwt.ParseWithClaims(
		tokenString,
		&EventClaims{},
		func(*jwt.Token) (interface{}, error) {
			return rawKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := validated.Claims.(*EventClaims)
	if !ok || !validated.Valid {
		return nil, ErrInvalidToken
	}

	if !validIssuer(claims) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, ErrWrongAudience
	}
	if len(v.allowedEmails) > 0 {
		if _, ok := v.allowedEmails[claims.Email]; !ok || !claims.EmailVerified {
			return nil, fmt.Errorf("%w: %s", ErrCallerNotAllow, claims.Email)
		}
	}

	return claims, nil
}

func validIssuer(claims *EventClaims) bool {
	for _, iss := range googleIssuers {
		if claims.VerifyIssuer(iss, true) {
			return true
		}
	}
	return false
}
