package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/queryfilter/internal/api"
	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/fluxbase-eu/queryfilter/internal/database"
	"github.com/fluxbase-eu/queryfilter/internal/logutil"
	"github.com/fluxbase-eu/queryfilter/internal/observability"
	"github.com/fluxbase-eu/queryfilter/internal/query"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server for the configured resources.

The memory driver serves rows from the seed file and needs no database.

Examples:
  queryfilter serve
  queryfilter serve --config /etc/queryfilter/queryfilter.yaml
  QUERYFILTER_DATABASE_DRIVER=memory queryfilter serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logutil.Setup(cfg.Logging)

	schema, err := database.NewSchema(cfg.Resources)
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor, closeExecutor, err := openExecutor(ctx, cfg.Database, schema, metrics)
	if err != nil {
		return err
	}
	defer closeExecutor()

	server := api.NewServer(api.ServerOptions{
		Config:   cfg,
		Schema:   schema,
		Executor: executor,
		Metrics:  metrics,
		Gatherer: registry,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

// openExecutor returns the executor for the configured driver and the
// function releasing it
func openExecutor(ctx context.Context, cfg config.DatabaseConfig, schema *database.Schema, metrics *observability.Metrics) (query.Executor, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		store := database.NewMemoryStore(schema, metrics)
		if cfg.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.SeedFile); err != nil {
				return nil, nil, err
			}
			log.Info().Str("seed_file", cfg.SeedFile).Msg("Loaded seed data")
		}
		return store, func() {}, nil

	default:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return database.NewPostgresExecutor(pool, schema, metrics), pool.Close, nil
	}
}
