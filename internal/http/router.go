package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/you/mediahub/internal/http/handlers"
	"github.com/you/mediahub/internal/http/middleware"
	"github.com/you/mediahub/internal/metrics"
)

func BuildRouter(ah *handlers.AuthHandlers, th *handlers.TokenHandlers, jwtmw gin.HandlerFunc, cb *middleware.CasbinMW, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	api := r.Group("/api")
	api.Use(jwtmw, cb.Enforce())

	api.POST("/login", ah.Login)
	api.GET("/login/methods", ah.Methods)
	api.POST("/login/send-otp-token", ah.SendOTP)
	api.POST("/login/verify-otp-token", ah.VerifyOTP)

	api.POST("/password/reset", ah.ResetPassword)
	api.POST("/password/change", ah.ChangePassword)

	api.POST("/token/refresh", th.Refresh)
	api.POST("/token/verify", th.Verify)

	api.GET("/me", th.Me)

	return r
}
