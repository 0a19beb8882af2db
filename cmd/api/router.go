package main

import (
	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autotag/internal/middleware"
)

func setupRouter(api *API, jwtSecret string, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(api.logger),
		middleware.Metrics(),
	)

	router.GET("/health", api.healthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtSecret), middleware.RateLimit(limiter))
	{
		v1.POST("/videos", api.uploadVideo)
		v1.GET("/jobs", api.listJobs)
		v1.GET("/jobs/:id", api.getJob)
		v1.DELETE("/jobs/:id", api.deleteJob)
		v1.POST("/jobs/:id/retry", api.retryJob)
		v1.GET("/jobs/:id/results", api.getJobResults)
		v1.GET("/stats", api.getStats)
		v1.GET("/system", api.getSystem)
	}

	return router
}
