package handler

import (
	"github.com/SergeiKhy/local-shortener/internal/middleware"
	"github.com/SergeiKhy/local-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	shortener service.ShortenerService,
	clickProcessor service.ClickProcessor,
	rateLimiter *middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Логирование запросов
	router.Use(func(c *gin.Context) {
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
		)
	})

	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware())
	}

	linkHandler := NewLinkHandler(shortener, clickProcessor, logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		v1.POST("/links", linkHandler.CreateLinks)
		v1.GET("/links/:code", linkHandler.GetLink)
		v1.GET("/stats", linkHandler.GetStats)
		v1.POST("/cleanup", linkHandler.Cleanup)
	}

	router.GET("/:code", linkHandler.Redirect)

	return router
}
