package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/logger"
)

// Enforcer decides whether a role may call a route
type Enforcer interface {
	Allowed(role domain.Role, path, method string) (bool, error)
}

// CasbinMW wraps the policy enforcer for middleware
type CasbinMW struct {
	enforcer Enforcer
	log      *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(enforcer Enforcer, log *zap.Logger) *CasbinMW {
	return &CasbinMW{enforcer: enforcer, log: logger.OrNop(log)}
}

// Enforce returns the casbin authorization middleware. It runs after
// AuthMiddleware; callers without a role are checked as anonymous.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := RoleFrom(c)
		path := c.Request.URL.Path
		method := c.Request.Method

		allowed, err := mw.enforcer.Allowed(role, path, method)
		if err != nil {
			mw.log.Error("authorization check failed",
				zap.String("path", path),
				zap.String("method", method),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authorization check failed",
				"code":  domain.CodeInternal,
			})
			return
		}

		if !allowed {
			if role == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Authentication credentials were not provided.",
					"code":  "not_authenticated",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "You do not have permission to perform this action.",
				"code":  "permission_denied",
			})
			return
		}

		c.Next()
	}
}
