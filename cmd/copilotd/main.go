// Command copilotd runs the process copilot daemon: the HTTP API, the
// generation worker pool and the Prometheus endpoint.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/petrijr/copilot/internal/config"
	"github.com/petrijr/copilot/internal/engine"
	"github.com/petrijr/copilot/internal/httpapi"
	"github.com/petrijr/copilot/internal/jobstore"
	"github.com/petrijr/copilot/internal/metrics"
	"github.com/petrijr/copilot/internal/provider/rulebased"
	"github.com/petrijr/copilot/internal/taskqueue"
	"github.com/petrijr/copilot/pkg/api"
	"github.com/petrijr/copilot/pkg/worker"
)

var configFile string

func main() {
	if err := buildCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "copilotd",
		Short:   "copilotd: asynchronous process generation service",
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the copilot HTTP API and worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})

	return rootCmd
}

func serve() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	observers := []api.Observer{api.NewLoggingObserver(logger)}

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector())
		observers = append(observers, metrics.NewObserver(reg))
	}

	queue := taskqueue.NewInMemoryQueue(cfg.Pipeline.QueueCapacity)

	orch, err := engine.New(engine.Config{
		Store:           store,
		Queue:           queue,
		Providers:       rulebased.New(),
		Observer:        api.NewCompositeObserver(observers...),
		MaxAttempts:     cfg.Pipeline.MaxAttempts,
		ProviderTimeout: cfg.Pipeline.ProviderTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Pipeline.WorkerCount; i++ {
		w := worker.New(orch, queue, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker_stopped", slog.Any("error", err))
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", httpapi.New(orch, logger).Router())
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}

	wg.Wait()
	return nil
}

func buildStore(cfg *config.Config) (jobstore.Store, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case "memory":
		return jobstore.NewMemoryStore(), noop, nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Store.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite: %w", err)
		}
		store, err := jobstore.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, func() { db.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		return jobstore.NewRedisStore(client, ""), func() { client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
