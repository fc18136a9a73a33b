package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"hms-service/internal/auth"
)

const usernameKey = "auth.username"

// Identify extracts the username from a bearer token when one is
// present. Requests without a token proceed as anonymous; a malformed
// token is also treated as anonymous rather than rejected, since every
// downstream rule already defaults to the guarded public policy.
func Identify(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}
		claims, err := parser.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.Next()
			return
		}
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// Username returns the authenticated username, empty for anonymous.
func Username(c *gin.Context) string {
	if v, ok := c.Get(usernameKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequireAuth gates admin endpoints on an authenticated caller.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Username(c) == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
