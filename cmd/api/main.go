package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/skillforge/skillforge-api/api/swagger"
	"github.com/skillforge/skillforge-api/internal/handler"
	"github.com/skillforge/skillforge-api/internal/repository"
	"github.com/skillforge/skillforge-api/internal/service"
	"github.com/skillforge/skillforge-api/pkg/cache"
	"github.com/skillforge/skillforge-api/pkg/config"
	"github.com/skillforge/skillforge-api/pkg/database"
	"github.com/skillforge/skillforge-api/pkg/export"
	"github.com/skillforge/skillforge-api/pkg/jobs"
	"github.com/skillforge/skillforge-api/pkg/logger"
	"github.com/skillforge/skillforge-api/pkg/mailer"
)

// @title SkillForge API
// @version 1.0.0
// @description Online learning marketplace backend
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close()
			cacheSvc = service.NewCacheService(cacheRepo, cfg.Cache.ListingTTL, logr, metricsSvc)
		}
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	notificationSvc := service.NewNotificationService(
		mailer.New(cfg.Mailer, logr),
		jobs.QueueConfig{
			Workers:    cfg.Jobs.Workers,
			BufferSize: cfg.Jobs.BufferSize,
			MaxRetries: cfg.Jobs.MaxRetries,
			RetryDelay: cfg.Jobs.RetryDelay,
		},
		logr,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, reviewRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, notificationSvc, export.NewCertificateRenderer(), cacheSvc, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, courseRepo, enrollmentRepo, cacheSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := newRouter(routerDeps{
		cfg:         cfg,
		logger:      logr,
		db:          db,
		metrics:     metricsSvc,
		auth:        authSvc,
		authH:       authHandler,
		courseH:     courseHandler,
		enrollmentH: enrollmentHandler,
		reviewH:     reviewHandler,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
