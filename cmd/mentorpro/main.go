package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mentorpro/internal/api/ws"
	"github.com/gosuda/mentorpro/internal/billing"
	"github.com/gosuda/mentorpro/internal/board"
	"github.com/gosuda/mentorpro/internal/config"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
	"github.com/gosuda/mentorpro/internal/metrics"
	"github.com/gosuda/mentorpro/internal/secrets"
	"github.com/gosuda/mentorpro/internal/server"
	"github.com/gosuda/mentorpro/internal/store/postgres"
	redisstore "github.com/gosuda/mentorpro/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	seeds, err := loadSeeds(cfg.Billing.SeedsFile)
	if err != nil {
		return err
	}

	vault, err := secrets.DeriveVault(cfg.Vault.Passphrase, cfg.Vault.Salt)
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}

	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	metrics.Register(prometheus.DefaultRegisterer)

	accounts := asaas.NewAccounts(store.GatewayConfigs(), vault, asaas.Options{
		Timeout:           cfg.Gateway.Timeout,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		Burst:             cfg.Gateway.Burst,
		BaseURL:           cfg.Gateway.BaseURL,
	})

	billingSvc := billing.NewService(billing.Repositories{
		Students: store.Students(),
		Products: store.Products(),
		Payments: store.Payments(),
		Audit:    store.Audit(),
	}, billing.AccountGateways(accounts), cfg.Billing.Location)

	srv := server.New(ctx, cfg, server.Deps{
		Store:    store,
		Billing:  billingSvc,
		Accounts: accounts,
		Hub:      ws.NewHub(pubsub),
		Seeds:    seeds,
		Gatherer: prometheus.DefaultGatherer,
		Checks: map[string]server.Pinger{
			"postgres": store,
			"redis":    pubsub,
		},
	})

	go func() {
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

func setupLogging(c config.LogConfig) {
	zerolog.SetGlobalLevel(c.Level)
	if c.Format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// loadSeeds returns the built-in board seeds unless path names a replacement.
func loadSeeds(path string) (board.Seeds, error) {
	if path == "" {
		return board.DefaultSeeds(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("board seeds: %w", err)
	}
	seeds, err := board.ParseSeeds(data)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("board seeds loaded")
	return seeds, nil
}
