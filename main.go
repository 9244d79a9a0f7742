package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkamau/pesabridge/internal/adapter/daraja"
	"github.com/mkamau/pesabridge/internal/adapter/whatsapp"
	"github.com/mkamau/pesabridge/internal/config"
	store "github.com/mkamau/pesabridge/internal/repository"
	"github.com/mkamau/pesabridge/internal/service"
	handler "github.com/mkamau/pesabridge/internal/transport/http"
	"github.com/mkamau/pesabridge/policy"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("starting pesabridge",
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"gateway", cfg.GatewayBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL, cfg.ConversationTTL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize payment gateway client
	gateway := daraja.NewClient(cfg)

	// Initialize chat messenger client
	messenger := whatsapp.NewClient(cfg)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, gateway, messenger, policyEngine, cfg, logger)

	// Create Echo server
	server := handler.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.Info("server started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}

	logger.Info("stopped")
}
