package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/handler"
	"github.com/noah-isme/student-portal-api/internal/middleware"
	"github.com/noah-isme/student-portal-api/pkg/config"
	"github.com/noah-isme/student-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-portal-api/pkg/middleware/cors"
	"github.com/noah-isme/student-portal-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/student-portal-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(a.auth)
	courseHandler := handler.NewCourseHandler(a.catalog)
	registrationHandler := handler.NewRegistrationHandler(a.registrations, a.exports)
	selectionHandler := handler.NewSelectionHandler(a.selections)
	studentHandler := handler.NewStudentHandler(a.students)

	writes := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware()
	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", writes, authHandler.Login)
	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:code", courseHandler.Get)

	secured := api.Group("")
	secured.Use(middleware.JWT(a.auth))

	secured.GET("/students/me", studentHandler.Me)

	secured.GET("/registrations", registrationHandler.List)
	secured.GET("/registrations/slip", registrationHandler.Slip)
	secured.POST("/registrations", writes, middleware.Audit(logr, "registration.create"), registrationHandler.Create)
	secured.DELETE("/registrations/:courseId", writes, middleware.Audit(logr, "registration.drop"), registrationHandler.Drop)

	secured.GET("/selection", selectionHandler.View)
	secured.POST("/selection/toggle", selectionHandler.Toggle)
	secured.POST("/selection/commit", writes, middleware.Audit(logr, "selection.commit"), selectionHandler.Commit)
	secured.DELETE("/selection", selectionHandler.Clear)

	return r
}
