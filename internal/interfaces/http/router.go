package http

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/infrastructure/config"
	"github.com/vendorsync/backend/internal/infrastructure/logger"
	"github.com/vendorsync/backend/internal/interfaces/http/handlers"
	"github.com/vendorsync/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers the router mounts
type Handlers struct {
	Sync        *handlers.SyncHandler
	Credentials *handlers.CredentialHandler
	Priorities  *handlers.PriorityHandler
	Schedules   *handlers.ScheduleHandler
	Health      *handlers.HealthHandler
}

// NewRouter builds the gin engine with all routes and middleware
func NewRouter(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	r := gin.New()
	_ = r.SetTrustedProxies(cfg.HTTP.TrustedProxies)

	r.Use(middleware.RequestID())
	r.Use(logger.GinRecovery(log))
	r.Use(logger.GinMiddleware(log))
	r.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)

	v1 := r.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.GET("/runs", h.Sync.History)
			sync.POST("/:vendor/:scope/trigger", h.Sync.Trigger)
			sync.POST("/:vendor/:scope/reset", h.Sync.Reset)
			sync.GET("/:vendor/:scope/status", h.Sync.Status)
		}

		vendors := v1.Group("/vendors")
		{
			vendors.GET("/:vendor/:scope/credentials", h.Credentials.Get)
			vendors.PUT("/:vendor/:scope/credentials", h.Credentials.Put)
		}

		priorities := v1.Group("/priorities")
		{
			priorities.GET("/:scope/:category", h.Priorities.List)
			priorities.PUT("/:scope/:category", h.Priorities.Replace)
		}

		schedules := v1.Group("/schedules")
		{
			schedules.GET("", h.Schedules.List)
			schedules.PUT("/:vendor/:scope", h.Schedules.Put)
			schedules.DELETE("/:vendor/:scope", h.Schedules.Delete)
		}
	}

	return r
}

// registerValidators adds custom binding validators
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
}
