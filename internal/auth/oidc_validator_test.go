package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwk"
)

const (
	testKeyID    = "test-key"
	testAudience = "https://alerts.example.com/v1/events/report-created"
	testCaller   = "eventarc-trigger@demo.iam.gserviceaccount.com"
)

func newTestKey(t *testing.T) (*rsa.PrivateKey, jwk.Set) {
	t.Helper()
	return newTestKeyWithID(t, testKeyID)
}

func newTestKeyWithID(t *testing.T, kid string) (*rsa.PrivateKey, jwk.Set) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	pub, err := jwk.New(&priv.PublicKey)
	if err != nil {
		t.Fatalf("jwk.New() error = %v", err)
	}
	if err := pub.Set(jwk.KeyIDKey, kid); err != nil {
		t.Fatalf("Set(kid) error = %v", err)
	}

	set := jwk.NewSet()
	set.Add(pub)
	return priv, set
}

func validClaims() *EventClaims {
	now := time.Now()
	return &EventClaims{
		Email:         testCaller,
		EmailVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func sign(t *testing.T, priv *rsa.PrivateKey, kid string, claims *EventClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestOIDCValidator_ValidToken(t *testing.T) {
	priv, set := newTestKey(t)
	v := NewOIDCValidatorWithKeys(set, testAudience, []string{testCaller})

	claims, err := v.ValidateToken(t.Context(), sign(t, priv, testKeyID, validClaims()))
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Email != testCaller {
		t.Errorf("Email = %q, want %q", claims.Email, testCaller)
	}
}

func TestOIDCValidator_Rejects(t *testing.T) {
	priv, set := newTestKey(t)
	otherKey, _ := newTestKey(t)

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name: "expired",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return sign(t, priv, testKeyID, c)
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "wrong audience",
			token: func() string {
				c := validClaims()
				c.Audience = jwt.ClaimStrings{"https://elsewhere.example.com"}
				return sign(t, priv, testKeyID, c)
			},
			wantErr: ErrWrongAudience,
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := validClaims()
				c.Issuer = "https://issuer.example.com"
				return sign(t, priv, testKeyID, c)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "caller not allowed",
			token: func() string {
				c := validClaims()
				c.Email = "someone@demo.iam.gserviceaccount.com"
				return sign(t, priv, testKeyID, c)
			},
			wantErr: ErrCallerNotAllow,
		},
		{
			name: "unverified email",
			token: func() string {
				c := validClaims()
				c.EmailVerified = false
				return sign(t, priv, testKeyID, c)
			},
			wantErr: ErrCallerNotAllow,
		},
		{
			name: "signed by unknown key",
			token: func() string {
				return sign(t, otherKey, testKeyID, validClaims())
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "unknown kid",
			token: func() string {
				return sign(t, priv, "rotated-away", validClaims())
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing kid",
			token: func() string {
				return sign(t, priv, "", validClaims())
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   func() string { return "not-a-jwt" },
			wantErr: ErrInvalidToken,
		},
	}

	v := NewOIDCValidatorWithKeys(set, testAudience, []string{testCaller})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(t.Context(), tt.token())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOIDCValidator_AnyCallerWithoutAllowList(t *testing.T) {
	priv, set := newTestKey(t)
	v := NewOIDCValidatorWithKeys(set, testAudience, nil)

	c := validClaims()
	c.Email = "scheduler@demo.iam.gserviceaccount.com"
	c.Issuer = "accounts.google.com"
	if _, err := v.ValidateToken(t.Context(), sign(t, priv, testKeyID, c)); err != nil {
		t.Errorf("ValidateToken() error = %v, want nil", err)
	}
}

func TestOIDCValidator_RefreshWithoutURL(t *testing.T) {
	_, set := newTestKey(t)
	v := NewOIDCValidatorWithKeys(set, testAudience, nil)

	if err := v.RefreshKeys(t.Context()); !errors.Is(err, ErrNoJWKS) {
		t.Errorf("RefreshKeys() error = %v, want ErrNoJWKS", err)
	}
}

// jwksServer serves whatever key set is current and counts fetches.
type jwksServer struct {
	mu      sync.Mutex
	set     jwk.Set
	fetches int
}

func (s *jwksServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.set)
}

func (s *jwksServer) swap(set jwk.Set) {
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
}

func (s *jwksServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func TestOIDCValidator_UnknownKidRefreshIsThrottled(t *testing.T) {
	_, oldSet := newTestKey(t)
	rotated, newSet := newTestKeyWithID(t, "rotated-key")

	keys := &jwksServer{set: oldSet}
	server := httptest.NewServer(keys)
	defer server.Close()

	v, err := NewOIDCValidator(t.Context(), server.URL, testAudience, nil)
	if err != nil {
		t.Fatalf("NewOIDCValidator() error = %v", err)
	}
	if keys.count() != 1 {
		t.Fatalf("initial fetches = %d, want 1", keys.count())
	}

	// Google rotated its keys: the first unknown kid refreshes and succeeds.
	keys.swap(newSet)
	if _, err := v.ValidateToken(t.Context(), sign(t, rotated, "rotated-key", validClaims())); err != nil {
		t.Fatalf("ValidateToken() after rotation error = %v", err)
	}
	if keys.count() != 2 {
		t.Fatalf("fetches after rotation = %d, want 2", keys.count())
	}

	// Further unknown kids inside the interval are rejected without a fetch.
	for i := 0; i < 5; i++ {
		_, err := v.ValidateToken(t.Context(), sign(t, rotated, "made-up-kid", validClaims()))
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("ValidateToken(unknown kid) error = %v, want ErrInvalidToken", err)
		}
	}
	if keys.count() != 2 {
		t.Errorf("fetches = %d after repeated unknown kids, want 2", keys.count())
	}
}
