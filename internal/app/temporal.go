package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"

	"github.com/jdholdren/podscribe/internal/logger"
)

// DialTemporal retries until temporal is ready or ctx is done.
func DialTemporal(ctx context.Context, cfg Config) (client.Client, error) {
	var temporalCli client.Client
	err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
			Logger:    log.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			slog.WarnContext(ctx, "temporal not ready", "err", err)
			return retry.RetryableError(err)
		}
		temporalCli = c

		return nil
	})

	return temporalCli, err
}

// NewLogger is the process logger: text unless the config asks for json.
func NewLogger(cfg Config) *slog.Logger {
	return logger.New(os.Stdout, cfg.LoggerFormat)
}
