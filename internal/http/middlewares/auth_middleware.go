package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salesops/leadhub/internal/auth"
	"github.com/salesops/leadhub/internal/domain/user"
	"github.com/salesops/leadhub/internal/policy"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserResolver
}

func NewAuthMiddleware(jwt TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

const ctxActorKey = "auth.actor"

// RequireAuth resolves the bearer token to a live user record. The
// lookup also rejects tokens for deactivated or deleted accounts,
// which the signed claims alone cannot.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		cctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		u, err := m.users.GetByID(cctx, claims.UserID)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		if !u.IsActive {
			abortUnauthorized(c, "Account is inactive")
			return
		}

		SetCurrentUser(c, u)

		c.Next()
	}
}

// SetCurrentUser stashes the resolved user on the request context.
// Exposed so handler tests can inject an identity without a token.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(ctxActorKey, u)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// CurrentUser returns the resolved user record for this request.
func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxActorKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

// ActorFrom projects the current user to the policy engine's actor.
func ActorFrom(c *gin.Context) (policy.Actor, bool) {
	u, ok := CurrentUser(c)
	if !ok {
		return policy.Actor{}, false
	}
	return policy.Actor{ID: u.ID, Role: u.Role}, true
}
