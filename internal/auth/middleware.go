package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID = "auth_user_id"
	ContextKeyEmail  = "auth_email"
	ContextKeyRole   = "auth_role"
)

const (
	msgTokenMissing = "Access token not found"
	msgTokenExpired = "Access token expired"
	msgTokenInvalid = "Invalid access token"
	msgForbidden    = "Insufficient permissions"
)

// Middleware authenticates API requests with bearer access tokens.
type Middleware struct {
	tokens *TokenIssuer
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(tokens *TokenIssuer) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handler returns a Gin middleware that requires a valid access token.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgTokenMissing})
			return
		}

		claims, err := m.tokens.ParseAccess(token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": msgTokenExpired})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgTokenInvalid})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgTokenInvalid})
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRole, claims.Role)
		c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), audit.Actor{
			UserID:    userID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))
		c.Next()
	}
}

// RequireRole returns a middleware that requires one of the given roles.
// It must run after Handler.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if !roleSet[GetUserRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": msgForbidden})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUserEmail retrieves the authenticated user's email from the context.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}
