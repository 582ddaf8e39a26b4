package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/practx/internal/repositories"
	"github.com/desertthunder/practx/internal/server"
	"github.com/desertthunder/practx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve opens the database, applies pending migrations and runs the API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	stores := server.Stores{
		Songs:     repositories.NewSongRepository(db),
		DailyLogs: repositories.NewDailyLogRepository(db),
		StageLogs: repositories.NewStageLogRepository(db),
	}

	router := server.NewAPIRouter(stores, cfg, r.logger)
	return server.New(cfg, router, r.logger).Run(ctx)
}
