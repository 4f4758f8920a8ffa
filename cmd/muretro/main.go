package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/muretro/internal/api/ws"
	"github.com/gosuda/muretro/internal/board"
	"github.com/gosuda/muretro/internal/chat"
	"github.com/gosuda/muretro/internal/config"
	"github.com/gosuda/muretro/internal/protocol"
	"github.com/gosuda/muretro/internal/server"
	"github.com/gosuda/muretro/internal/session"
	redisstore "github.com/gosuda/muretro/internal/store/redis"
	"github.com/gosuda/muretro/internal/timer"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Initialize structured logging from environment.
	logLevel := os.Getenv("MURETRO_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("MURETRO_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Optional Redis event feed.
	var (
		feed      *redisstore.PubSub
		publisher protocol.Publisher
	)
	if cfg.Redis.Enabled() {
		feed, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer feed.Close()
		publisher = feed
		log.Info().Str("addr", cfg.Redis.Addr).Msg("event feed enabled")
	}

	// Board state and the services that share it.
	store := board.NewStore()
	tracker := session.NewTracker()
	bc := protocol.NewBroadcaster(store, tracker, publisher)
	defer bc.Close()
	timers := timer.NewService(bc, nil, cfg.Timer.Duration)
	defer timers.Stop()
	rooms := chat.NewRooms(cfg.Chat.HistoryLimit)
	handler := protocol.NewHandler(store, tracker, bc, timers, rooms)

	hub := ws.NewHub(tracker, handler, feed, ws.Options{
		AllowedOrigins:    cfg.Server.CORSOrigins,
		MaxMessageBytes:   cfg.WS.MaxMessageBytes,
		WriteTimeout:      cfg.WS.WriteTimeout,
		SendBuffer:        cfg.WS.SendBuffer,
		MessagesPerSecond: cfg.WS.MessagesPerSecond,
		Burst:             cfg.WS.Burst,
	})

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, timers, hub)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().
		Int("boards", store.Len()).
		Msg("stopped")
	return nil
}
