package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadops/timetable-api/api/swagger"
	"github.com/acadops/timetable-api/internal/handler"
	"github.com/acadops/timetable-api/internal/middleware"
	"github.com/acadops/timetable-api/internal/models"
	"github.com/acadops/timetable-api/internal/repository"
	"github.com/acadops/timetable-api/internal/service"
	"github.com/acadops/timetable-api/pkg/cache"
	"github.com/acadops/timetable-api/pkg/config"
	"github.com/acadops/timetable-api/pkg/database"
	"github.com/acadops/timetable-api/pkg/jobs"
	"github.com/acadops/timetable-api/pkg/logger"
	corsmiddleware "github.com/acadops/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadops/timetable-api/pkg/middleware/requestid"
	"github.com/acadops/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly class timetable generation and publishing service
// @BasePath /api/v1
// @schemes http

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

	metricsService := service.NewMetricsService()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Timetable.CacheTTL, logr, redisClient != nil)

	staffRepo := repository.NewStaffRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	configRepo := repository.NewConfigRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportRepo := repository.NewExportRepository(db)

	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	staffService := service.NewStaffService(staffRepo, nil, logr)
	subjectService := service.NewSubjectService(subjectRepo, nil, logr)
	configService := service.NewConfigService(configRepo, nil, logr)
	generatorService := service.NewTimetableGeneratorService(configRepo, staffRepo, subjectRepo, scheduleRepo, metricsService, cacheService, logr)
	timetableService := service.NewTimetableService(scheduleRepo, configRepo, cacheService, cfg.Timetable.CacheTTL, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportService := service.NewExportService(scheduleRepo, configRepo, exportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	exportWorker := service.NewExportWorker(exportRepo, exportService, cfg.Exports.WorkerRetries, logr)
	exportQueue := jobs.NewQueue("exports", exportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportJobService := service.NewExportJobService(exportRepo, exportQueue, exportService, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exportQueue.Start(ctx)
	defer exportQueue.Stop()
	exportJobService.RecoverPendingJobs(ctx)
	exportJobService.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authService)
	staffHandler := handler.NewStaffHandler(staffService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	configHandler := handler.NewConfigHandler(configService)
	timetableHandler := handler.NewTimetableHandler(generatorService, timetableService)
	exportHandler := handler.NewExportHandler(exportJobService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Signed token download stays public; the token itself is the credential.
	api.GET("/export/:token", exportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/staff", staffHandler.List)
		authed.GET("/staff/:id", staffHandler.Get)
		authed.GET("/subjects", subjectHandler.List)
		authed.GET("/subjects/:id", subjectHandler.Get)
		authed.GET("/config", configHandler.Get)
		authed.GET("/timetable", timetableHandler.List)
		authed.GET("/timetable/grid", timetableHandler.Grid)
		authed.GET("/timetable/conflicts", timetableHandler.Conflicts)
		authed.GET("/timetable/export/:id", exportHandler.Status)
		authed.GET("/system/metrics", metricsHandler.System)

		admin := authed.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/staff", staffHandler.Create)
			admin.PUT("/staff/:id", staffHandler.Update)
			admin.DELETE("/staff/:id", staffHandler.Deactivate)
			admin.POST("/subjects", subjectHandler.Create)
			admin.PUT("/subjects/:id", subjectHandler.Update)
			admin.DELETE("/subjects/:id", subjectHandler.Delete)
			admin.PUT("/config", configHandler.Put)
			admin.POST("/timetable/generate", timetableHandler.Generate)
			admin.POST("/timetable/export", exportHandler.Create)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
