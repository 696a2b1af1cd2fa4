package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nomadz/paygate/internal/config"
	"github.com/nomadz/paygate/internal/handler"
	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/manager"
	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/logger"
	"github.com/nomadz/paygate/internal/repository"
	"github.com/nomadz/paygate/internal/service"
	"github.com/nomadz/paygate/internal/stream"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Setup(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})

	initializers, err := parseAllowlist(cfg.Settlement.InitializerAllowlist)
	if err != nil {
		log.Fatalf("Invalid settlement.initializer_allowlist: %v", err)
	}

	// 3. Initialize Persistence
	// Ledger, audit and idempotency (Database > Memory)
	var (
		l                ledger.Ledger = ledger.NewMemLedger()
		auditRepo        service.AuditRepo
		statsRepo        service.StatsRepo
		idempotencyStore middleware.IdempotencyStore = middleware.NewInMemIdempotencyStore()
		nonceStore       manager.NonceStore          = manager.NewMemNonceStore()
		cleaners         []cleaner
	)
	if cfg.Database.Driver != "" && cfg.Database.Driver != "memory" {
		db, err := repository.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to db: %v", err)
		}
		logger.Info("✅ Connected to database", "driver", cfg.Database.Driver)
		l = repository.NewGormLedger(db)

		gormAudit := repository.NewGormAuditRepo(db)
		gormIdem := repository.NewGormIdempotencyStore(db)
		gormStats := repository.NewGormStatsRepo(db)
		auditRepo, idempotencyStore, statsRepo = gormAudit, gormIdem, gormStats
		nonceStore = repository.NewGormNonceStore(db)
		cleaners = append(cleaners,
			cleaner{"audit", gormAudit.Cleanup, days(cfg.Database.AuditRetentionDays)},
			cleaner{"idempotency", gormIdem.Cleanup, time.Duration(cfg.Database.IdempotencyRetentionHours) * time.Hour},
			cleaner{"stats", gormStats.Cleanup, days(cfg.Database.AuditRetentionDays)},
		)
	} else {
		logger.Warn("⚠️ Using in-memory ledger, state is lost on restart")
	}

	// Redis takes over idempotency and stats when configured.
	// Audit and nonces stay in the database when there is one.
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			idempotencyStore = repository.NewRedisIdempotencyStore(redisClient,
				time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
			statsRepo = repository.NewRedisStatsRepo(redisClient)
			if auditRepo == nil {
				auditRepo = repository.NewRedisAuditRepo(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
				nonceStore = repository.NewRedisNonceStore(redisClient)
			}
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back", "error", err)
		}
	}

	// 4. Initialize Core Services
	auditSvc, err := service.NewAuditService(service.AuditFileOptions{
		Dir:        cfg.Audit.Dir,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAgeDays: cfg.Audit.MaxAgeDays,
	}, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	statsSvc := service.NewStatsService(statsRepo)
	events := stream.NewHub()
	emitter := service.MultiEmitter{service.LogEmitter{}, statsSvc, events}

	configSvc := service.NewConfigService(l, initializers)
	configSvc.SetEmitter(emitter)
	bookingSvc := service.NewBookingService(l, ledger.NewOwnerDelegationChecker())
	bookingSvc.SetEmitter(emitter)

	// 5. Setup Router
	r := handler.NewRouter(handler.RouterDeps{
		Config:      cfg,
		ConfigSvc:   configSvc,
		BookingSvc:  bookingSvc,
		TokenSvc:    service.NewTokenService(l),
		StatsSvc:    statsSvc,
		AuditSvc:    auditSvc,
		Nonces:      manager.NewNonceManager(nonceStore),
		Limiters:    manager.NewLimiterManager(cfg.RateLimit.QPS, cfg.RateLimit.Burst),
		Idempotency: idempotencyStore,
		Events:      events,
	})
	if cfg.Settlement.DevMintEnabled {
		logger.Warn("⚠️ Dev minting enabled at /v1/ops/mint")
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	go runCleanup(cleanupCtx, time.Duration(cfg.Database.CleanupIntervalMinutes)*time.Minute, cleaners)

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 PayGate started", "port", cfg.Server.Port, "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	stopCleanup()
	events.Close()
	auditSvc.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exiting")
}

func parseAllowlist(raw []string) ([]model.Pubkey, error) {
	out := make([]model.Pubkey, 0, len(raw))
	for _, s := range raw {
		pk, err := model.ParsePubkey(s)
		if err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	return out, nil
}

type cleaner struct {
	name      string
	fn        func(ctx context.Context, olderThan time.Duration) error
	retention time.Duration
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func runCleanup(ctx context.Context, interval time.Duration, cleaners []cleaner) {
	if interval <= 0 || len(cleaners) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range cleaners {
				if err := c.fn(ctx, c.retention); err != nil {
					logger.LogError(ctx, err, "Retention cleanup failed", "table", c.name)
				}
			}
		}
	}
}
