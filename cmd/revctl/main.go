package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dafibh/revledger/revledger-backend/internal/bootstrap"
	"github.com/dafibh/revledger/revledger-backend/internal/cli"
	"github.com/dafibh/revledger/revledger-backend/internal/config"
	"github.com/dafibh/revledger/revledger-backend/internal/logger"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configuration errors surface when a command needs the backends, so
	// --help works without a database
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(load)
	if err := cli.Execute(ctx, root); err != nil {
		stop()
		os.Exit(1)
	}
}

func load(ctx context.Context) (*cli.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return nil, nil, err
	}

	services, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	app := &cli.App{
		Revenues: services.Queries,
		Events:   services.Events,
		ClaimTTL: cfg.IdempotencyTTL,
	}
	// Optional backends stay nil interfaces when unconfigured
	if services.DeadLetters != nil {
		app.DeadLetters = services.DeadLetters
	}
	if services.Queue != nil {
		app.Publisher = services.Queue
	}
	if services.Claims != nil {
		app.Claims = services.Claims
	}
	return app, services.Close, nil
}
