package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solperp/permitgate/internal/config"
	"github.com/solperp/permitgate/internal/handler"
	"github.com/solperp/permitgate/internal/market"
	"github.com/solperp/permitgate/internal/middleware"
	"github.com/solperp/permitgate/internal/permit"
	"github.com/solperp/permitgate/internal/pkg/logger"
	"github.com/solperp/permitgate/internal/repository"
	"github.com/solperp/permitgate/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// Idempotency persistence (Redis > Memory).
	var idempotencyStore middleware.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
			ttl := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second
			idempotencyStore = repository.NewRedisIdempotencyStore(redisClient, ttl)
		} else {
			logger.Error("redis unavailable, falling back to memory", "error", err)
		}
	}
	if idempotencyStore == nil {
		idempotencyStore = middleware.NewInMemIdempotencyStore()
	}

	// Audit persistence (Postgres > local file only).
	var auditRepo service.AuditRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("connected to postgres")
			pgRepo := repository.NewPostgresAuditRepo(db)
			auditRepo = pgRepo
			if cfg.Database.AuditRetentionDays > 0 {
				retention := time.Duration(cfg.Database.AuditRetentionDays) * 24 * time.Hour
				go func() {
					ticker := time.NewTicker(12 * time.Hour)
					defer ticker.Stop()
					for range ticker.C {
						if err := pgRepo.Cleanup(context.Background(), retention); err != nil {
							logger.Error("audit cleanup failed", "error", err)
						}
					}
				}()
			}
		} else {
			logger.Error("postgres unavailable, audit logs will be file-only", "error", err)
		}
	}

	auditSvc, err := service.NewAuditService("./logs", auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	tenantManager := service.NewTenantManager(cfg)

	// Market registry: static config first, websocket updates on top.
	markets := make([]market.Market, 0, len(cfg.Markets))
	for _, mc := range cfg.Markets {
		markets = append(markets, market.Market{
			Index:         mc.Index,
			Symbol:        mc.Symbol,
			SzDecimals:    mc.SzDecimals,
			PriceDecimals: mc.PriceDecimals,
			MaxLeverage:   mc.MaxLeverage,
		})
	}
	registry := market.NewRegistry(markets)

	var metaStream *market.MetaStream
	if cfg.Stream.URL != "" {
		metaStream = market.NewMetaStream(cfg.Stream.URL, registry)
		metaStream.Start()
	}

	programID, err := solana.PublicKeyFromBase58(cfg.Chain.ProgramID)
	if err != nil {
		log.Fatalf("Invalid program id: %v", err)
	}
	authorizer, err := solana.PublicKeyFromBase58(cfg.Permit.Authorizer)
	if err != nil {
		log.Fatalf("Invalid authorizer pubkey: %v", err)
	}

	domain := permit.PermitDomain{
		ProgramID: programID,
		Version:   permit.EnvelopeVersion,
		Cluster:   permit.ClusterFromString(cfg.Chain.Cluster),
	}
	builder := permit.NewBuilder(domain, authorizer, cfg.Permit.MaxFeeQuote, nil)
	if cfg.Permit.ExpirySeconds > 0 {
		builder = builder.WithExpiry(time.Duration(cfg.Permit.ExpirySeconds) * time.Second)
	}
	if cfg.Permit.WindowK > 0 {
		builder = builder.WithWindowK(cfg.Permit.WindowK)
	}

	gatewaySvc := service.NewGatewayService(cfg, tenantManager, builder, registry)

	permitHandler := handler.NewPermitHandler(gatewaySvc)
	auditHandler := handler.NewAuditHandler(auditSvc)

	r := gin.Default()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "permitgate",
			"cluster": domain.Cluster.String(),
		})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, tenantManager))
	v1.Use(middleware.RateLimitMiddleware(tenantManager))
	v1.Use(middleware.IdempotencyMiddleware(idempotencyStore))
	{
		v1.POST("/permits/build", permitHandler.Build)
		v1.POST("/permits/sign", permitHandler.Sign)
		v1.POST("/permits/verify", permitHandler.Verify)
		v1.GET("/permits/inspect/:hex", permitHandler.Inspect)
		v1.GET("/markets", permitHandler.Markets)
		v1.GET("/audit", auditHandler.List)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("permitgate started", "port", cfg.Server.Port, "cluster", domain.Cluster.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if metaStream != nil {
		metaStream.Stop()
	}
	auditSvc.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("server exiting")
}
