package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lox/holdemcore/internal/auth"
	"github.com/lox/holdemcore/internal/config"
	"github.com/lox/holdemcore/internal/hub"
	"github.com/lox/holdemcore/internal/session"
	"github.com/lox/holdemcore/internal/store"
)

// CLI is the process entrypoint's flag set: the table/blind/timeout options
// recognized live in the HCL config file instead, since they're per-table
// and per-deployment rather than per-process-invocation.
type CLI struct {
	Addr string `kong:"help='Listen address, overrides the config file server block'"`
	Config string `kong:"default='poker.hcl',help='HCL configuration file path'"`
	Debug bool `kong:"help='Enable debug logging'"`
	Dev bool `kong:"help='Run against in-memory stores and accept any bearer token as a player identity (no Postgres, no JWT signing key required)'"`
	PostgresDSN string `kong:"name='postgres-dsn',help='Postgres connection string for the relational store (ignored with --dev)'"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("holdemcore-server"),
		kong.Description("Multiplayer Texas Hold'em table engine and connection hub"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	if err := cfg.Validate(); err != nil {
		kctx.FatalIfErrorf(err)
	}

	kv := store.NewMemoryKV()

	var rel store.RelationalStore
	var authv auth.Validator
	if cli.Dev {
		rel = store.NewMemoryRelational()
		authv = auth.NewNoopValidator()
		logger.Warn().Msg("running in --dev mode: in-memory relational store, any bearer token accepted as a player identity")
	} else {
		authv = auth.NewJWTValidator(cfg.Server.JWTSecret)
		if cli.PostgresDSN == "" {
			logger.Warn().Msg("no --postgres-dsn given, falling back to an in-memory relational store")
			rel = store.NewMemoryRelational()
		} else {
			db, err := gorm.Open(postgres.Open(cli.PostgresDSN), &gorm.Config{})
			kctx.FatalIfErrorf(err)
			gs, err := store.NewGormStore(db)
			kctx.FatalIfErrorf(err)
			rel = gs
		}
	}

	sessions := session.New(cfg.Server.ReconnectGraceSeconds)
	h := hub.New(cfg, kv, rel, sessions, authv, logger)

	addr := cli.Addr
	if addr == "" {
		addr = cfg.GetServerAddress()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Int("tables", len(cfg.Tables)).Msg("hub starting")
		serverErr <- h.Start(addr)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			kctx.FatalIfErrorf(err)
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}

		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server exited with error")
		} else {
			logger.Info().Msg("server shutdown complete")
		}
	}
}
