package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edunova-api/api/swagger"
	"github.com/noah-isme/edunova-api/internal/handler"
	"github.com/noah-isme/edunova-api/internal/middleware"
	"github.com/noah-isme/edunova-api/internal/models"
	"github.com/noah-isme/edunova-api/internal/service"
	"github.com/noah-isme/edunova-api/pkg/config"
	"github.com/noah-isme/edunova-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edunova-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edunova-api/pkg/middleware/requestid"
)

type routeDeps struct {
	accounts      middleware.TokenValidator
	metrics       *service.MetricsService
	timetable     *handler.TimetableHandler
	auth          *handler.AuthHandler
	observability *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.observability.Health)
	r.GET("/ready", deps.observability.Ready)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, deps.observability.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.JWT(deps.accounts)
	generationGuard := middleware.OptionalJWT(deps.accounts)
	if cfg.Timetable.RequireAuth {
		generationGuard = requireAuth
	}
	uploadLimit := middleware.BodyLimit(cfg.Timetable.MaxUploadBytes + 1<<20)

	// Routes kept from the first release, with bare bodies and {"detail"} errors.
	r.POST("/register", deps.auth.LegacyRegister)
	r.POST("/login", deps.auth.LegacyLogin)
	r.POST("/generate", uploadLimit, generationGuard, deps.timetable.LegacyGenerate)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/register", deps.auth.Register)
		auth.POST("/login", deps.auth.Login)
		auth.GET("/me", requireAuth, deps.auth.Me)

		timetables := api.Group("/timetables", generationGuard)
		timetables.POST("/generate", middleware.BodyLimit(cfg.Timetable.MaxUploadBytes), deps.timetable.Generate)
		timetables.POST("/upload", uploadLimit, deps.timetable.Upload)
		timetables.POST("/export", middleware.BodyLimit(cfg.Timetable.MaxUploadBytes), deps.timetable.Export)

		admin := api.Group("", requireAuth, middleware.RequireUserTypes(models.UserTypeAdmin))
		admin.DELETE("/timetables/cache", deps.timetable.ClearCache)
		admin.GET("/metrics/system", deps.observability.Snapshot)
	}

	return r
}
