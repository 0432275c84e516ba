package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/settlegate/settlegate/internal/config"
	"github.com/settlegate/settlegate/internal/handler"
	"github.com/settlegate/settlegate/internal/ledger"
	"github.com/settlegate/settlegate/internal/middleware"
	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/pkg/logger"
	"github.com/settlegate/settlegate/internal/repository"
	"github.com/settlegate/settlegate/internal/service"
	"github.com/settlegate/settlegate/internal/signer"
	"github.com/settlegate/settlegate/internal/validation"
	"github.com/settlegate/settlegate/internal/venue"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	// 2. Initialize Persistence
	// Nonce Ledger (Postgres > Redis > Memory)
	var nonceStore ledger.Store
	var recordStore service.RecordStore
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("Connected to PostgreSQL")
			nonceStore = ledger.NewPostgresStore(db)
			recordStore = repository.NewPostgresRecordStore(db)
		} else {
			logger.Error("Failed to connect to DB, falling back", "error", err)
		}
	}
	if nonceStore == nil && cfg.Redis.Addr != "" {
		redisStore, err := ledger.NewRedisStore(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			nonceStore = redisStore
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if nonceStore == nil {
		nonceStore = ledger.NewMemoryStore()
	}
	if recordStore == nil {
		recordStore = repository.NewMemoryRecordStore(0)
	}

	// 3. Signature domain, venues, trust state
	domain := signer.NewDomain(cfg.Chain.ChainID, common.HexToAddress(cfg.Chain.VerifyingContract))
	holding := common.HexToAddress(cfg.Settlement.HoldingAddress)

	registry := venue.NewStaticRegistry()
	bank := venue.NewSimBank(domain)

	var codes venue.CodeChecker
	staticCodes := venue.NewStaticCodeChecker()
	if cfg.Chain.RPCURL != "" {
		codes = venue.NewEthCodeChecker(cfg.Chain.RPCURL)
	} else {
		codes = staticCodes
	}

	store, err := service.NewConfigStore(registry, cfg.Settlement.FeeRateBps)
	if err != nil {
		log.Fatalf("Invalid settlement config: %v", err)
	}
	for _, raw := range cfg.Settlement.Whitelist {
		if !common.IsHexAddress(raw) {
			log.Fatalf("Invalid whitelist token in config: %s", raw)
		}
		token := common.HexToAddress(raw)
		store.AddWhitelisted(token)
		staticCodes.Add(token)
	}

	// 4. Core services
	engine := validation.NewEngine(store, nonceStore)
	executor := service.NewExecutor(store, engine, nonceStore, domain, codes, bank, bank, recordStore, holding)
	adminSvc := service.NewAdminService(store, codes, bank, holding)

	// Bind configured venues. Without a chain RPC the reference
	// constant-product adapter serves every venue address.
	for _, v := range cfg.Venues {
		if !common.IsHexAddress(v.Adapter) {
			log.Fatalf("Invalid adapter address for venue %s: %s", v.Name, v.Adapter)
		}
		adapterAddr := common.HexToAddress(v.Adapter)
		registry.Register(model.VenueInfo{
			Protocol: model.Protocol(v.Protocol),
			Adapter:  adapterAddr,
			Active:   v.Active,
			Version:  v.Version,
			Name:     v.Name,
		})
		staticCodes.Add(adapterAddr)
		if cfg.Chain.RPCURL == "" {
			executor.RegisterAdapter(venue.NewConstProductAdapter(adapterAddr, bank))
		}
	}

	// 5. Handlers
	settleHandler := handler.NewSettleHandler(executor)
	adminHandler := handler.NewAdminHandler(adminSvc)

	// 6. Router
	r := gin.Default()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "settlegate"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(cfg))
	{
		v1.POST("/settle", settleHandler.Settle)
		v1.POST("/nonces/cancel", settleHandler.CancelNonce)
		v1.GET("/settlements", settleHandler.Recent)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("/config", adminHandler.GetConfig)
		admin.PUT("/fee", adminHandler.SetFeeRate)
		admin.POST("/whitelist", adminHandler.AddWhitelisted)
		admin.DELETE("/whitelist/:token", adminHandler.RemoveWhitelisted)
		admin.POST("/withdraw", adminHandler.EmergencyWithdraw)
	}

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}
