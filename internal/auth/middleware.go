package auth

import (
	"log/slog"
	"strings"

	apierrors "github.com/eternisai/fire-alerts/internal/errors"
	"github.com/eternisai/fire-alerts/internal/logger"
	"github.com/gin-gonic/gin"
)

// CallerEmailKey is the gin context key holding the authenticated caller.
const CallerEmailKey = "caller_email"

type EventAuthMiddleware struct {
	validator TokenValidator
	logger    *logger.Logger
}

func NewEventAuthMiddleware(validator TokenValidator, logger *logger.Logger) *EventAuthMiddleware {
	return &EventAuthMiddleware{
		validator: validator,
		logger:    logger.WithComponent("event-auth"),
	}
}

// RequireEventAuth rejects requests without a valid bearer identity token.
func (m *EventAuthMiddleware) RequireEventAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apierrors.AbortWithUnauthorized(c, "Authorization header is required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			apierrors.AbortWithUnauthorized(c, "Authorization header must be a Bearer token")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			apierrors.AbortWithUnauthorized(c, "Bearer token is empty")
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			m.logger.WithContext(c.Request.Context()).Warn("rejected event caller",
				slog.String("path", c.FullPath()),
				slog.String("error", err.Error()))
			apierrors.AbortWithUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(CallerEmailKey, claims.Email)
		c.Next()
	}
}

// GetCallerEmail returns the authenticated caller's email.
func GetCallerEmail(c *gin.Context) (string, bool) {
	email, ok := c.Get(CallerEmailKey)
	if !ok {
		return "", false
	}
	s, ok := email.(string)
	return s, ok
}
