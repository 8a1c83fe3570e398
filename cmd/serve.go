package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/exportify/internal/repositories"
	"github.com/desertthunder/exportify/internal/server"
	"github.com/desertthunder/exportify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve wires the state token store and Spotify client into the HTTP server
// and runs it until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if err := config.ValidateServer(); err != nil {
		return fmt.Errorf("server configuration invalid: %w", err)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:  config,
		Store:   repositories.NewStateTokenRepository(db),
		Spotify: client,
		Logger:  r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(signalCtx)
}
