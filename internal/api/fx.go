// Package api is the HTTP surface for managing feeds and tags and for
// triggering ingestion and episode processing.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/jdholdren/podscribe/internal/feeds"
	"github.com/jdholdren/podscribe/internal/pipeline"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/sqlite"
)

var Module = fx.Module("api",
	fx.Provide(
		func(r sqlite.Repo) podscribe.Repository { return r },
		func(in *feeds.Ingestor) Ingestor { return in },
		func(o *pipeline.Orchestrator) Orchestrator { return o },
		NewServer,
	),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				slog.Info("api listening", "addr", s.Addr)
				if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("api server stopped", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
}
