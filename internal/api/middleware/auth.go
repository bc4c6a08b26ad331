package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agencyhq/agencysite/internal/core/auth"
)

const (
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
	ContextUser      = "user"
)

// SessionAuthenticator resolves a bearer token to a live session.
type SessionAuthenticator interface {
	CurrentSession(ctx context.Context, token string) (*auth.Session, *auth.User, error)
}

type AuthMiddleware struct {
	sessions SessionAuthenticator
}

func NewAuthMiddleware(sessions SessionAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate lets a request through only with a valid session token.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		session, user, err := m.sessions.CurrentSession(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextSessionID, session.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// Helper functions to get context values
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetSessionID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(ContextSessionID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetUser(c *gin.Context) *auth.User {
	val, exists := c.Get(ContextUser)
	if !exists {
		return nil
	}
	user, _ := val.(*auth.User)
	return user
}
