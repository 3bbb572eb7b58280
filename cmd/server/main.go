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

	router "github.com/avoran/huddle/internal/adapters/http"
	"github.com/avoran/huddle/internal/adapters/livekit"
	"github.com/avoran/huddle/internal/app"
	"github.com/avoran/huddle/internal/config"
	"github.com/avoran/huddle/internal/core"
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

	provider := livekit.NewProvider(cfg.LiveKitURL, cfg.APIKey, cfg.APISecret)
	issuer := app.NewTokenIssuer(cfg.APIKey, cfg.APISecret, cfg.TokenTTL)
	registry := app.NewRoomRegistry(provider, app.AllowListPolicy{HostEmail: cfg.HostEmail})
	moderator := app.NewModerator(cfg.APISecret, provider)
	roster := app.NewRosterService(cfg.LiveKitURL, issuer, func() core.RoomSession {
		return livekit.NewSession()
	})

	h := router.NewHandlers(registry, issuer, moderator, roster)
	r := router.SetupRouter(cfg, h)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	roster.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
