package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/config"
	"github.com/homepoint/crm-notify/internal/session"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if cfg.API.Token == "" {
		log.Fatal().Msg("api.token (or API_TOKEN) is required")
	}

	log.Info().
		Str("api", cfg.API.BaseURL).
		Str("transport", cfg.Stream.Transport).
		Msg("starting crm-notify daemon")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Session ──────────────────────────────────────────────────────────────
	// A headless daemon is always "visible"; activation connects the
	// push channel and reconciles unread records.
	sess := session.New(cfg)
	defer sess.Close()
	sess.SetVisible(true)

	// ── Initial page ─────────────────────────────────────────────────────────
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.API.Timeout())
	if err := sess.Store().FetchPage(fetchCtx, "all", 1, cfg.Fetch.PageSize); err != nil {
		log.Warn().Err(err).Msg("initial notification fetch failed")
	}
	cancel()
	log.Info().
		Int("loaded", sess.Store().Len()).
		Int("unread", sess.Store().UnreadCount()).
		Msg("notification store primed")

	// ── Badge count updates ──────────────────────────────────────────────────
	unsubscribe := sess.Store().Subscribe(func() {
		log.Debug().Int("unread", sess.Store().UnreadCount()).Msg("store changed")
	})
	defer unsubscribe()

	// ── Toast feed ───────────────────────────────────────────────────────────
	for {
		select {
		case toast := <-sess.Toasts():
			fmt.Printf("[%s] %s", toast.Category, toast.Content)
			if toast.TargetURL != "" {
				fmt.Printf("  (%s)", toast.TargetURL)
			}
			fmt.Println()

		case <-ctx.Done():
			log.Info().Msg("crm-notify daemon stopped")
			return
		}
	}
}
