package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edunova-api/internal/handler"
	"github.com/noah-isme/edunova-api/internal/repository"
	"github.com/noah-isme/edunova-api/internal/service"
	"github.com/noah-isme/edunova-api/pkg/cache"
	"github.com/noah-isme/edunova-api/pkg/config"
	"github.com/noah-isme/edunova-api/pkg/database"
	"github.com/noah-isme/edunova-api/pkg/logger"
)

// @title Edunova API
// @version 1.0.0
// @description Constraint-based weekly timetable generator with student accounts
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("database migration failed", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, "edunova:", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, redisClient != nil)

	normalizer := service.NewRosterNormalizer(logr)
	timetableSvc := service.NewTimetableService(normalizer, cacheSvc, metrics, validate, logr, service.TimetableConfig{
		MaxClasses:   cfg.Timetable.MaxClasses,
		MaxPeriods:   cfg.Timetable.MaxPeriods,
		MaxDays:      cfg.Timetable.MaxDays,
		ParallelDays: cfg.Timetable.ParallelDays,
		CacheTTL:     cfg.Timetable.CacheTTL,
	})
	accountSvc := service.NewAccountService(repository.NewUserRepository(db), validate, logr, service.AccountConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})

	r := newRouter(cfg, logr, routeDeps{
		accounts:  accountSvc,
		metrics:   metrics,
		timetable: handler.NewTimetableHandler(timetableSvc, normalizer, cfg.Timetable.MaxUploadBytes),
		auth:      handler.NewAuthHandler(accountSvc),
		observability: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"database": db.PingContext,
			"redis":    cacheRepo.Ping,
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
