package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savegress/oncotrace/internal/api"
	"github.com/savegress/oncotrace/internal/audit"
	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/internal/docstore"
	"github.com/savegress/oncotrace/internal/highlight"
	"github.com/savegress/oncotrace/internal/matching"
	"github.com/savegress/oncotrace/internal/resolver"
	"github.com/savegress/oncotrace/internal/source"
	"github.com/savegress/oncotrace/internal/synthesize"
)

func main() {
	log.Println("Starting OncoTrace...")

	cfg := loadConfig()

	store := docstore.New(&cfg.Store)
	auditLogger := audit.NewLogger(&cfg.Audit)

	sourceService := source.NewService(
		store,
		resolver.New(&cfg.Resolver),
		matching.NewChain(&cfg.Matching),
		highlight.New(&cfg.Viewer),
		synthesize.New(),
		auditLogger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := auditLogger.Start(ctx); err != nil {
		log.Fatalf("Failed to start audit logger: %v", err)
	}

	server := api.NewServer(cfg, store, sourceService, auditLogger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("OncoTrace API listening on port %d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down OncoTrace...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	auditLogger.Stop()

	log.Println("OncoTrace stopped")
}

func loadConfig() *config.Config {
	configPath := os.Getenv("ONCOTRACE_CONFIG")
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Printf("Failed to load config from %s: %v, using defaults", configPath, err)
			return config.LoadFromEnv()
		}
		return cfg
	}
	return config.LoadFromEnv()
}
