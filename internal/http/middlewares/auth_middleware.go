package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/recipehub/internal/actorctx"
	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	tokens TokenResolver
}

func NewAuthMiddleware(tokens TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// bearerToken accepts "Bearer <t>" and "Token <t>".
func bearerToken(header string) string {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}

	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(raw)
	default:
		return ""
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      apperr.CodeUnauthorized,
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthorized(c, "Authentication credentials were not provided.")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		userID, err := m.tokens.Resolve(ctx, raw)
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthorized) {
				abortUnauthorized(c, "Invalid token.")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    apperr.CodeInternal,
					"message": "Could not verify token",
				},
			})
			return
		}

		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), userID))

		c.Next()
	}
}

// UserIDFromContext returns the id set by RequireAuth.
func UserIDFromContext(c *gin.Context) (string, bool) {
	return actorctx.UserIDFrom(c.Request.Context())
}
