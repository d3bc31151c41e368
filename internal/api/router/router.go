package router

import (
	"time"

	"kardex-ingest/internal/api/handlers"
	"kardex-ingest/internal/api/middleware"
	"kardex-ingest/internal/config"
	"kardex-ingest/internal/infrastructure/cache"
	"kardex-ingest/internal/infrastructure/repository"
	"kardex-ingest/internal/service"
	"kardex-ingest/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewKardexRouter wires the repositories, services and handlers for the
// kardex ingestion API on top of the given database handle.
func NewKardexRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(cors.Default())
	r.Use(gin.Recovery())
	r.Use(middleware.IdempotencyMiddleware())

	cfg := config.Get()

	store := repository.NewGormStore(db)
	ingestionService := service.NewIngestionService(store)
	transcriptService := service.NewTranscriptQueryService(store)

	var idempotencyService *service.IdempotencyService
	if cfg.Cache.Enabled {
		client := cache.NewRedisClient(&cfg.Cache)
		ttl := time.Duration(cfg.Ingest.ReceiptTTLHours) * time.Hour
		if ttl <= 0 {
			ttl = service.DefaultReceiptTTL
		}
		idempotencyService = service.NewIdempotencyService(cache.NewReceiptCache(client, ttl))
		logger.Info("Ingest receipt cache enabled on %s:%d", cfg.Cache.Host, cfg.Cache.Port)
	}

	kardexHandler := handlers.NewKardexHandler(ingestionService, transcriptService, idempotencyService)
	healthHandler := handlers.NewHealthHandler(db)

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/ready", healthHandler.ReadinessCheck)
	r.GET("/live", healthHandler.LivenessCheck)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/kardex", kardexHandler.Ingest)

		students := v1.Group("/students")
		{
			students.GET("/:enrollment_id/kardex", kardexHandler.GetStudentTranscript)
		}
	}
	return r
}
