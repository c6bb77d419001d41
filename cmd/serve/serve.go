// Package serve implements the long-running service command: the
// schedule manager plus the admin HTTP API.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/harvester/cmd/common"
	"github.com/jonesrussell/harvester/internal/api"
	"github.com/jonesrussell/harvester/internal/schedule"
	"github.com/jonesrussell/harvester/internal/storage"
)

// shutdownTimeout bounds how long draining takes on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and admin API",
		Long: `Start the schedule manager and the admin HTTP server, and run
until interrupted. Active schedules fire on their cron cadence; the API
exposes crawl triggering, selector testing, schedule control and search.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			deps, err := common.NewCommandDeps(cfgFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), deps)
		},
	}
}

func run(ctx context.Context, deps *common.Deps) error {
	db, err := common.OpenDatabase(ctx, deps)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := common.BuildEngine(deps, db)
	if err != nil {
		return err
	}
	defer engine.Shutdown()

	scheduleRepo := storage.NewScheduleRepository(db)
	manager := schedule.NewManager(scheduleRepo, engine.Crawl, deps.Logger)
	if startErr := manager.Start(ctx); startErr != nil {
		return fmt.Errorf("failed to start schedule manager: %w", startErr)
	}
	defer manager.Stop()

	var searcher api.Searcher
	if engine.Searcher != nil {
		searcher = engine.Searcher
	}

	server := api.NewServer(api.Params{
		Config:    deps.Config.Server,
		Logger:    deps.Logger,
		Engine:    engine.Crawl,
		Schedules: manager,
		Store:     scheduleRepo,
		Sources:   storage.NewSourceRepository(db),
		Runs:      storage.NewRunRepository(db),
		Searcher:  searcher,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		deps.Logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		deps.Logger.Info("Context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("failed to shut down server: %w", shutdownErr)
	}
	return nil
}
