package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nomadz/paygate/internal/config"
	"github.com/nomadz/paygate/internal/manager"
	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/service"
	"github.com/nomadz/paygate/internal/stream"
)

// RouterDeps is everything NewRouter wires into the HTTP surface.
type RouterDeps struct {
	Config      *config.Config
	ConfigSvc   *service.ConfigService
	BookingSvc  *service.BookingService
	TokenSvc    *service.TokenService
	StatsSvc    *service.StatsService
	AuditSvc    *service.AuditService
	Nonces      *manager.NonceManager
	Limiters    *manager.LimiterManager
	Idempotency middleware.IdempotencyStore
	Events      *stream.Hub
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middleware
	// AuditMiddleware wraps ErrorHandler so audit entries see rendered errors.
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	if d.AuditSvc != nil {
		r.Use(middleware.AuditMiddleware(d.AuditSvc))
	}
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.ReadOnlyMiddleware(d.Config.Server.ReadOnly))

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "paygate"})
	})

	// Metrics Endpoint
	if d.Config.Metrics.Enabled {
		r.GET(d.Config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	configHandler := NewConfigHandler(d.ConfigSvc)
	bookingHandler := NewBookingHandler(d.BookingSvc)
	tokenHandler := NewTokenHandler(d.TokenSvc)

	// API V1 Routes
	v1 := r.Group("/v1")
	{
		v1.GET("/config", configHandler.Get)
		v1.GET("/bookings/derive", bookingHandler.Derive)
		v1.GET("/bookings/:address", bookingHandler.Get)
		v1.GET("/token-accounts/:owner/:mint", tokenHandler.Balance)
	}

	signed := v1.Group("")
	signed.Use(middleware.SignerAuthMiddleware(d.Nonces))
	signed.Use(middleware.RateLimitMiddleware(d.Limiters))
	signed.Use(middleware.IdempotencyMiddleware(d.Idempotency))
	{
		signed.POST("/config/initialize", configHandler.Initialize)
		signed.PATCH("/config", configHandler.Update)
		signed.POST("/bookings", bookingHandler.Create)
		signed.POST("/bookings/:address/settle", bookingHandler.Settle)
	}

	ops := v1.Group("/ops")
	ops.Use(middleware.AdminMiddleware(d.Config))
	{
		if d.Config.Settlement.DevMintEnabled {
			ops.POST("/mint", tokenHandler.Mint)
		}
		if d.AuditSvc != nil {
			ops.GET("/audit", NewAuditHandler(d.AuditSvc).List)
		}
		ops.GET("/stats", NewStatsHandler(d.StatsSvc, d.ConfigSvc).Daily)
		if d.Events != nil {
			ops.GET("/events", d.Events.Handle)
		}
	}

	return r
}
