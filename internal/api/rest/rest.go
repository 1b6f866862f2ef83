// Package rest exposes the indexed graph over HTTP.
package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/castindex/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, auth *middleware.Authenticator) {
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/v1")
	{
		v1.GET("/stats", handler.GetStats)
		v1.POST("/query", middleware.Auth(auth), handler.RunQuery)
	}
}
