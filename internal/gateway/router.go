package gateway

import (
	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes matches the largest upload the web client sends.
const DefaultMaxBodyBytes = 20 * 1024 * 1024

// NewRouter wires the gateway routes and middleware.
func NewRouter(h *Handler, maxBodyBytes int64) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(BodyLimitMiddleware(maxBodyBytes))

	api := r.Group("/api")
	api.POST("/chat", h.Chat)
	api.POST("/validate", h.Validate)

	r.GET("/health", h.Health)
	return r
}
