package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/siga-ar/siga-api/api/swagger"
	"github.com/siga-ar/siga-api/internal/handler"
	"github.com/siga-ar/siga-api/internal/middleware"
	"github.com/siga-ar/siga-api/internal/models"
	"github.com/siga-ar/siga-api/internal/repository"
	"github.com/siga-ar/siga-api/internal/service"
	"github.com/siga-ar/siga-api/pkg/cache"
	"github.com/siga-ar/siga-api/pkg/config"
	"github.com/siga-ar/siga-api/pkg/database"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
	"github.com/siga-ar/siga-api/pkg/logger"
	corsmiddleware "github.com/siga-ar/siga-api/pkg/middleware/cors"
	reqidmiddleware "github.com/siga-ar/siga-api/pkg/middleware/requestid"
	"github.com/siga-ar/siga-api/pkg/response"
)

// @title SIGA API
// @version 1.0.0
// @description Academic administration API: cursada enrollment rules engine and legajo tracking
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, rate limiting disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	catalogRepo := repository.NewCatalogRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	legajoRepo := repository.NewLegajoRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	conflictSvc := service.NewConflictDetector(enrollmentRepo, logr)
	prereqSvc := service.NewPrerequisiteValidator(catalogRepo, enrollmentRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(catalogRepo, periodRepo, enrollmentRepo, prereqSvc, conflictSvc, cfg.Enrollment, metricsSvc, validate, logr)
	legajoSvc := service.NewLegajoService(legajoRepo, metricsSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	legajoHandler := handler.NewLegajoHandler(legajoSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusServiceUnavailable, "database unavailable"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		authed := api.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			authed.POST("/auth/logout", authHandler.Logout)

			enrollments := authed.Group("/enrollments")
			enrollments.Use(middleware.RateLimit(redisClient, cfg.RateLimit, logr))
			{
				enrollments.POST("", enrollmentHandler.Create)
				enrollments.GET("", enrollmentHandler.List)
				enrollments.PUT("/:id/withdraw", enrollmentHandler.Withdraw)
			}

			legajos := authed.Group("/career-enrollments")
			legajos.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar, models.RoleStaff))
			{
				legajos.GET("/:id/legajo", legajoHandler.Detail)
				legajos.PUT("/:id/legajo/items", legajoHandler.UpdateItems)
				legajos.POST("/:id/legajo/recompute", legajoHandler.Recompute)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
