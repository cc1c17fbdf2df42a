package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hmochat/internal/middleware"
)

type RouterDeps struct {
	Sessions       *SessionHandler
	System         *SystemHandler
	JWTSecret      []byte
	RateLimitQPS   float64
	RateLimitBurst int
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.System.Health)
	api.GET("/metrics", deps.System.Metrics)
	api.POST("/metrics/reset", deps.System.ResetMetrics)

	api.POST("/sessions", middleware.RateLimit(deps.RateLimitQPS, deps.RateLimitBurst), deps.Sessions.Create)

	sessionGroup := api.Group("/sessions")
	sessionGroup.Use(
		middleware.SessionAuth(deps.JWTSecret),
		middleware.RateLimit(deps.RateLimitQPS, deps.RateLimitBurst),
	)
	sessionGroup.POST("/message", deps.Sessions.Message)
	sessionGroup.POST("/ask", deps.Sessions.Ask)
	sessionGroup.GET("/state", deps.Sessions.State)
}
