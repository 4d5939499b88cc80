package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chats-be/internal/auth"
	"chats-be/internal/models"
	"chats-be/internal/permissions"
	"chats-be/internal/store"
)

const userKey = "user"

// Authenticate resolves a Bearer access token to its user. Requests without an
// Authorization header continue anonymously; a bad token is rejected outright.
func Authenticate(tokens *auth.Tokens, users *store.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authorization header must contain a Bearer token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(h, "Bearer "), auth.AccessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}

		u, err := users.UserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error("load token user", zap.Uint("user_id", claims.UserID), zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// MustUser is for handlers mounted behind Authorize.
func MustUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}

// Authorize runs the request phase of perm before the handler.
func Authorize(perm permissions.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if perm.HasPermission(permissions.Request{User: u, Method: c.Request.Method}) {
			c.Next()
			return
		}
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
	}
}
