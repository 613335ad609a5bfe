package controller

import (
	"cfjudge/internal/common/http/middleware"
	"cfjudge/internal/judge/service"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP handler for the judge server.
func NewRouter(svc *service.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceContextMiddleware())
	router.Use(middleware.RequestLogger())

	router.GET("/healthz", Health)
	NewRunController(svc).Register(router.Group("/api/v1"))
	return router
}
