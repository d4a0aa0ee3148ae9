// Command server runs the leaseway web application server: the admin
// console, the public leasing storefront, and the storage layer they
// both sit on.
//
// Configuration is discovered from --config, the LEASEWAY_CONFIG
// environment variable, ./config.yaml, or /etc/leaseway/config.yaml, with
// LEASEWAY_* environment overrides on top.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/leaseway/leaseway/pkg/config"
	"github.com/leaseway/leaseway/pkg/observability"
	"github.com/leaseway/leaseway/pkg/storage/providers"
)

func main() {
	app := &cli.App{
		Name:  "leaseway",
		Usage: "rental-property management server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("config"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Build the provider registry and open the configured storage bundle.
	registry := providers.NewRegistry()
	snap := registry.Providers()
	slog.Info("storage providers registered",
		"databases", snap.Databases, "caches", snap.Caches, "object_stores", snap.ObjectStores)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := registry.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer provider.Close()

	// Metrics registry with process/go collectors plus storage metrics.
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observability.MustRegister(promReg)

	if provider.Database != nil {
		provider.Database = observability.InstrumentDatabase(provider.Database, cfg.Storage.Database.Provider)
		slog.Info("database opened", "provider", cfg.Storage.Database.Provider)
	}
	if provider.Cache != nil {
		provider.Cache = observability.InstrumentCache(provider.Cache, cfg.Storage.Cache.Provider)
		slog.Info("cache opened", "provider", cfg.Storage.Cache.Provider)
	}
	if provider.ObjectStore != nil {
		provider.ObjectStore = observability.InstrumentObjectStore(provider.ObjectStore, cfg.Storage.ObjectStore.Provider)
		slog.Info("object store opened", "provider", cfg.Storage.ObjectStore.Provider)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, observability.Handler(promReg))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
