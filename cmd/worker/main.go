package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"go.temporal.io/sdk/client"
	"go.uber.org/fx"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/podscribe/internal/app"
	"github.com/jdholdren/podscribe/internal/feeds"
	"github.com/jdholdren/podscribe/internal/migrations"
	"github.com/jdholdren/podscribe/internal/pipeline"
	"github.com/jdholdren/podscribe/internal/sqlite"
	"github.com/jdholdren/podscribe/internal/worker"
)

type config struct {
	app.Config

	// Stage metrics are recorded here, so the worker serves them too
	MetricsPort int `env:"METRICS_PORT, default=9090"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(app.NewLogger(cfg.Config))

	// Connect to the sqlite db
	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	if err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	// Retry until temporal is ready
	temporalCli, err := app.DialTemporal(ctx, cfg.Config)
	if err != nil {
		log.Fatalln("Unable to create Temporal client:", err)
	}
	defer temporalCli.Close()

	if err := worker.EnsureNamespace(ctx, temporalCli.WorkflowService(), cfg.TemporalNamespace); err != nil {
		log.Fatalf("error ensuring namespace: %s", err)
	}

	// Build the services
	var (
		repo     sqlite.Repo
		ingestor *feeds.Ingestor
		orch     *pipeline.Orchestrator
	)
	services := fx.New(
		fx.Supply(
			cfg.Config,
			dbx,
			fx.Annotate(ctx, fx.As(new(context.Context))),
			fx.Annotate(temporalCli, fx.As(new(client.Client))),
		),
		app.Module,
		fx.Populate(&repo, &ingestor, &orch),
	)
	if err := services.Err(); err != nil {
		log.Fatalf("error building services: %s", err)
	}

	w, err := worker.NewWorker(ctx, temporalCli, worker.Config{
		FeedSyncInterval: cfg.FeedSyncInterval,
		AutoProcess:      cfg.AutoProcessEpisodes,
	}, repo, ingestor, orch)
	if err != nil {
		log.Fatalf("error creating worker: %s", err)
	}

	var g run.Group
	// Until interrupted
	g.Add(run.SignalHandler(ctx, os.Interrupt))
	// Temporal worker
	stop := make(chan any)
	g.Add(func() error {
		return w.Run(stop)
	}, func(error) {
		close(stop)
	})
	// Metrics
	metricsSrv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:     promhttp.Handler(),
		ReadTimeout: 5 * time.Second,
	}
	g.Add(func() error {
		slog.Info("serving metrics", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Run(); err != nil {
		var sigErr run.SignalError
		if !errors.As(err, &sigErr) {
			slog.Error("worker stopped", "err", err)
			os.Exit(1)
		}
	}
	slog.Info("worker shut down")
}
