package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/stubserver"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── State & Hub ──────────────────────────────────────────────────────────
	state := stubserver.NewState()
	stubserver.Seed(state)
	hub := stubserver.NewHub()

	// ── HTTP Server ──────────────────────────────────────────────────────────
	handler := stubserver.NewHandler(state, hub)
	router := stubserver.NewRouter(handler)

	go func() {
		log.Info().Str("port", port).Msg("stub notification server listening")
		if err := router.Start(":" + port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("stub notification server stopped")
}
