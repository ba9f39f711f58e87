package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airdrop-backend/internal/clients"
	"airdrop-backend/internal/config"
	"airdrop-backend/internal/events"
	"airdrop-backend/internal/handlers"
	"airdrop-backend/internal/middleware"
	"airdrop-backend/internal/router"
	"airdrop-backend/internal/services"
	"airdrop-backend/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (config.local.yaml / config.yaml when empty)")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	if err := cfg.Log.ConfigureLogger(logrus.StandardLogger()); err != nil {
		logrus.Fatalf("❌ Invalid log config: %v", err)
	}
	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	logrus.WithFields(logrus.Fields{
		"chain_id": cfg.Blockchain.ChainID,
		"rpc":      cfg.Blockchain.RPCEndpoint,
		"window":   []int64{cfg.Airdrop.WindowStartOffset, cfg.Airdrop.WindowEndOffset},
	}).Info("🚀 Starting airdrop backend")

	dialCtx, cancelDial := context.WithTimeout(context.Background(), cfg.RPCTimeout())
	chain, err := clients.NewChainClient(dialCtx, cfg.Blockchain.RPCEndpoint, cfg.RPCTimeout())
	cancelDial()
	if err != nil {
		logrus.Fatalf("❌ Failed to create chain client: %v", err)
	}
	defer chain.Close()

	if err := chain.VerifyChainID(context.Background(), cfg.Blockchain.ChainID); err != nil {
		if errors.Is(err, types.ErrChainIDMismatch) {
			logrus.Fatalf("❌ %v", err)
		}
		logrus.WithError(err).Warn("⚠️ Could not verify chain id, continuing")
	}

	window, err := services.NewWindowService(chain, cfg.Airdrop.WindowStartOffset, cfg.Airdrop.WindowEndOffset)
	if err != nil {
		logrus.Fatalf("❌ Failed to create window service: %v", err)
	}
	tokens, err := services.NewTokenService(chain, services.TokenServiceConfig{
		DefaultDecimals: cfg.Airdrop.DefaultDecimals,
		TokenDecimals:   cfg.Airdrop.TokenDecimals,
		ResolveOnChain:  cfg.Airdrop.ResolveOnChain,
		CacheSize:       cfg.Airdrop.TokenCacheSize,
	})
	if err != nil {
		logrus.Fatalf("❌ Failed to create token service: %v", err)
	}
	commitments := services.NewCommitmentService(cfg.Airdrop.MinRecipients)

	var drafts *events.DraftEvents
	if cfg.NATS.URL != "" {
		natsClient, err := clients.NewNATSClient(cfg.NATS.URL, cfg.NATSTimeout())
		if err != nil {
			logrus.Fatalf("❌ Failed to connect to NATS: %v", err)
		}
		defer natsClient.Close()
		drafts = events.NewDraftEvents(natsClient, cfg.NATS.Subject)
	} else {
		logrus.Warn("⚠️ NATS URL not configured, submitted drafts are not published")
	}

	registry := services.NewStepRegistry(services.StepDeps{
		Window:             window,
		Commitments:        commitments,
		Tokens:             tokens,
		DefaultRewardToken: cfg.Airdrop.DefaultRewardToken,
	}, drafts, cfg.SessionTTL())
	registry.Start()
	defer registry.Stop()

	engine := router.SetupRouter(cfg,
		handlers.NewAirdropHandler(registry, window, commitments, tokens),
		handlers.NewWebSocketHandler(registry, middleware.NewOriginPolicy(cfg.CORS)))

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("✅ HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("🛑 Shutting down airdrop backend...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("❌ HTTP server shutdown failed")
	}
	logrus.Info("✅ Airdrop backend stopped")
}
