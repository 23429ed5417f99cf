package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/delivery-ledger/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(deliveries *handlers.DeliveryHandler, auth *handlers.AuthHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/login", auth.Login)
		api.GET("/branches", deliveries.Branches)

		api.POST("/deliveries", deliveries.Create)
		api.GET("/deliveries", deliveries.List)
		api.GET("/deliveries/:id", deliveries.Get)
		api.PUT("/deliveries/:id/receive", deliveries.Receive)
		api.DELETE("/deliveries/:id", deliveries.Delete)

		api.GET("/export/csv", deliveries.ExportCSV)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
