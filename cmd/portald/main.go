package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/portald/internal/adapters/chat"
	"github.com/dkeye/portald/internal/adapters/gateway"
	router "github.com/dkeye/portald/internal/adapters/http"
	"github.com/dkeye/portald/internal/app"
	"github.com/dkeye/portald/internal/config"
	"github.com/dkeye/portald/internal/storage/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Token == "" {
		log.Warn().Msg("no bot token configured; set one via the config API and restart")
	}

	store, err := sqlite.Open(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open portal store")
	}
	defer store.Close()

	// Wire orchestrator, portal manager and gateway client around the
	// shared per-guild lock arena.
	locks := app.NewGuildLocks()
	orch := &app.Orchestrator{Store: store, Locks: locks}
	client := gateway.NewClient(cfg.Token, cfg.APIBaseURL, cfg.GatewayURL, orch)
	orch.Gateway = client

	portals := &app.PortalManager{
		Gateway: client,
		Store:   store,
		Locks:   locks,
		Control: chat.ControlMessage(),
	}

	if cfg.Token != "" {
		go client.Run(ctx)
	}

	r := router.SetupRouter(cfg, cfg, portals)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("portald started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
