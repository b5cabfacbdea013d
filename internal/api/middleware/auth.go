// Package middleware provides HTTP middleware functions for the EndoTrace API server.
// It includes authentication, logging, metrics, CORS handling, and other cross-cutting
// concerns that are applied to HTTP requests before they reach the handlers.
package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/endotrace/endotrace/internal/auth"
	"github.com/endotrace/endotrace/internal/config"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/policy"
)

// UserLookup loads the account a token was issued for.
type UserLookup interface {
	GetUser(id int64) (*models.User, error)
}

// AuthMiddleware validates JWT tokens and sets user context. With a non-nil
// users lookup the role comes from the stored account, so role changes and
// deleted accounts take effect before the token expires.
func AuthMiddleware(cfg *config.Config, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1], cfg.JWT.Secret, cfg.JWT.Issuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		role := claims.Role
		if users != nil {
			user, err := users.GetUser(claims.UserID)
			switch {
			case errors.Is(err, sql.ErrNoRows) || (err == nil && user.Username != claims.Username):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
				c.Abort()
				return
			case err != nil:
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				c.Abort()
				return
			}
			role = user.Role
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", role)

		c.Next()
	}
}

// Actor returns the identity set by AuthMiddleware. It is empty, and therefore
// unauthenticated, when the middleware did not run.
func Actor(c *gin.Context) policy.Actor {
	return policy.Actor{
		Username: c.GetString("username"),
		Role:     c.GetString("role"),
	}
}

// RequireRole rejects requests whose role is not one of roles. Admins pass every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "no role in context"})
			c.Abort()
			return
		}

		if userRole == models.RoleAdmin {
			c.Next()
			return
		}
		for _, role := range roles {
			if userRole == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		c.Abort()
	}
}
