package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/sethvargo/go-envconfig"
	"go.temporal.io/sdk/client"
	"go.uber.org/fx"

	"github.com/jdholdren/podscribe/internal/api"
	"github.com/jdholdren/podscribe/internal/app"
	"github.com/jdholdren/podscribe/internal/migrations"
	"github.com/jdholdren/podscribe/internal/sqlite"
)

type config struct {
	app.Config

	Port       int    `env:"PORT, default=4444"`
	CorsHeader string `env:"CORS_HEADER, default=*"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
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

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	// Retry until temporal is ready
	temporalCli, err := app.DialTemporal(ctx, cfg.Config)
	if err != nil {
		log.Fatalln("Unable to create Temporal client:", err)
	}
	defer temporalCli.Close()

	// Start the application
	fx.New(
		fx.Supply(
			cfg.Config,
			api.ServerConfig{
				Port:       cfg.Port,
				CorsHeader: cfg.CorsHeader,
			},
			dbx,
			fx.Annotate(ctx, fx.As(new(context.Context))),
			fx.Annotate(temporalCli, fx.As(new(client.Client))),
		),
		app.Module,
		api.Module,
	).Run()
}
