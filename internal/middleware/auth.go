package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/notionpress/core/internal/pkg/response"
)

const contextKeyAuthed = "authenticated"

// Auth enforces the shared admin secret on mutating endpoints. An
// empty configured secret disables the endpoint entirely rather than
// leaving it open.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || !tokenMatches(extractToken(c), secret) {
			response.Unauthorized(c)
			return
		}
		c.Set(contextKeyAuthed, true)
		c.Next()
	}
}

// OptionalAuth marks the request authenticated when the secret matches
// but never blocks it. Authenticated requests bypass the shared
// response cache.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && tokenMatches(extractToken(c), secret) {
			c.Set(contextKeyAuthed, true)
		}
		c.Next()
	}
}

// IsAuthenticated reports whether the request carried the admin secret.
func IsAuthenticated(c *gin.Context) bool {
	return c.GetBool(contextKeyAuthed)
}

func tokenMatches(token, secret string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
