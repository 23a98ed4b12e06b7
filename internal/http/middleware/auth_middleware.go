package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/you/mediahub/domain"
)

// Context keys set for authenticated requests
const (
	UserIDKey = "user_id"
	RoleKey   = "user_role"
)

// accepted Authorization schemes
var headerTypes = []string{"Bearer", "JWT"}

// AuthMiddleware identifies the caller from an access token. Requests
// without an Authorization header continue anonymously; a header that
// does not carry a valid access token is rejected.
func AuthMiddleware(tokenSvc domain.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
				"code":  domain.CodeTokenNotValid,
			})
			return
		}

		claims, err := tokenSvc.ValidateAccessToken(token)
		if err != nil {
			msg := "Invalid token"
			if err == domain.ErrTokenExpired {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": msg,
				"code":  domain.CodeTokenNotValid,
			})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	for _, t := range headerTypes {
		if parts[0] == t {
			return strings.TrimSpace(parts[1]), true
		}
	}
	return "", false
}

// RoleFrom returns the caller's role, empty for anonymous requests
func RoleFrom(c *gin.Context) domain.Role {
	v, ok := c.Get(RoleKey)
	if !ok {
		return ""
	}
	role, _ := v.(domain.Role)
	return role
}
