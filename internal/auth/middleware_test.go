package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eternisai/fire-alerts/internal/logger"
	"github.com/gin-gonic/gin"
)

type fakeValidator struct {
	claims *EventClaims
	err    error
	got    string
}

func (f *fakeValidator) ValidateToken(ctx context.Context, token string) (*EventClaims, error) {
	f.got = token
	return f.claims, f.err
}

func newTestRouter(v TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/events",
		NewEventAuthMiddleware(v, logger.Discard()).RequireEventAuth(),
		func(c *gin.Context) {
			email, _ := GetCallerEmail(c)
			c.String(http.StatusOK, email)
		})
	return router
}

func TestRequireEventAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  *fakeValidator
		wantStatus int
		wantBody   string
		wantToken  string
	}{
		{
			name:       "valid token",
			header:     "Bearer abc.def.ghi",
			validator:  &fakeValidator{claims: &EventClaims{Email: testCaller}},
			wantStatus: http.StatusOK,
			wantBody:   testCaller,
			wantToken:  "abc.def.ghi",
		},
		{
			name:       "missing header",
			validator:  &fakeValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth",
			header:     "Basic dXNlcjpwYXNz",
			validator:  &fakeValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty bearer",
			header:     "Bearer ",
			validator:  &fakeValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "rejected token",
			header:     "Bearer expired",
			validator:  &fakeValidator{err: ErrExpiredToken},
			wantStatus: http.StatusUnauthorized,
			wantToken:  "expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.validator)

			req := httptest.NewRequest(http.MethodPost, "/events", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.validator.got != tt.wantToken {
				t.Errorf("validator saw %q, want %q", tt.validator.got, tt.wantToken)
			}
		})
	}
}
