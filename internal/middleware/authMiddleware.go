package middleware

import (
	"net/http"
	"strings"

	"github.com/dockhand-io/dockhand/internal/service"
	"github.com/gin-gonic/gin"
)

// Validates JWT token and requires authentication
func RequireAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required. Use: Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims["user_id"])
		c.Set("email", claims["email"])
		c.Set("role", claims["role"])
		c.Set("claims", claims)

		c.Next()
	}
}

// OptionalAuth resolves the caller identity when a valid token is present
// but never rejects. It runs before the governance middleware so rate-limit
// keys use the user ID instead of the client IP whenever possible.
func OptionalAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if claims, err := authService.ValidateToken(c.Request.Context(), tokenString); err == nil {
				c.Set("user_id", claims["user_id"])
				c.Set("email", claims["email"])
				c.Set("role", claims["role"])
				c.Set("claims", claims)
			}
		}

		c.Next()
	}
}

// Restricts a route to callers holding the given role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != role {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	return parts[1], true
}
