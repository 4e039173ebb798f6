package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"farebridge/internal/handler"
	"farebridge/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	SettlementHandler *handler.SettlementHandler
	RiderHandler      *handler.RiderHandler
	Metrics           http.Handler
	RedisClient       *redis.Client
	NewRelicApp       *newrelic.Application
	Logger            *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	if deps.Logger != nil {
		router.Use(middleware.RequestLogger(deps.Logger))
	}

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := router.Group("/v1")
	{
		events := v1.Group("/events")
		{
			events.POST("", deps.SettlementHandler.HandleEvent)
			events.POST("/batch", deps.SettlementHandler.HandleBatch)
		}

		v1.POST("/iterations", deps.SettlementHandler.StartIteration)
		v1.GET("/records", deps.SettlementHandler.GetRecords)
		v1.GET("/anomalies", deps.SettlementHandler.GetAnomalies)

		riders := v1.Group("/riders")
		{
			riders.GET("/:id/eligibility", deps.RiderHandler.GetEligibility)
			riders.GET("/:id/records", deps.RiderHandler.GetRecords)
		}
	}

	return router
}
