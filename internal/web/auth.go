package web

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dshills/mdkb-mcp/internal/session"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

// AuthMiddleware rejects requests that do not carry token, either as a
// bearer credential or bare in the Authorization header. CORS preflight
// requests pass through. An empty token disables the check.
func AuthMiddleware(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(token)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		got := credential(c.GetHeader("Authorization"))
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			log.Printf("web: %s %s: %v", c.Request.Method, c.Request.URL.Path, types.ErrAuthorizationFailure)
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"jsonrpc": "2.0",
				"id":      nil,
				"error": gin.H{
					"code":    session.CodeUnauthorized,
					"message": "Unauthorized",
				},
			})
			return
		}
		c.Next()
	}
}

// credential strips an optional Bearer scheme from an Authorization value
func credential(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
