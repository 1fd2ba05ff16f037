package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"

	"github.com/jdholdren/podscribe/internal/feeds"
	"github.com/jdholdren/podscribe/internal/pipeline"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/serverutil"
)

type (
	// Server exposes the feed, episode and tag records over JSON and lets
	// callers kick off ingestion and episode processing.
	Server struct {
		*http.Server

		repo     podscribe.Repository
		ingestor Ingestor
		orch     Orchestrator
		tempCli  client.Client
	}

	ServerConfig struct {
		Port       int
		CorsHeader string
	}

	Ingestor interface {
		EnsureFeed(ctx context.Context, url string) (podscribe.Feed, bool, error)
		ProcessAllActiveFeeds(ctx context.Context) ([]feeds.Report, error)
	}

	// Orchestrator runs an episode in process, for callers that wait.
	Orchestrator interface {
		RunWorkflow(ctx context.Context, episodeID string) (pipeline.Report, error)
	}
)

func NewServer(config ServerConfig, repo podscribe.Repository, ingestor Ingestor, orch Orchestrator, temporalCli client.Client) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}
	if config.CorsHeader == "" {
		config.CorsHeader = "*"
	}

	srvr := Server{
		repo:     repo,
		ingestor: ingestor,
		orch:     orch,
		tempCli:  temporalCli,
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			ReadTimeout: 5 * time.Second,
			// Waiting on a workflow takes as long as the episode does
			WriteTimeout: 0,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything

	// Feeds
	r.HandleFuncE("/api/feeds", srvr.getFeeds).Methods(http.MethodGet)
	r.HandleFuncE("/api/feeds", srvr.postFeeds).Methods(http.MethodPost)
	r.HandleFuncE("/api/feeds/process", srvr.postFeedsProcess).Methods(http.MethodPost)
	r.HandleFuncE("/api/feeds/{feedID}", srvr.patchFeed).Methods(http.MethodPatch)
	r.HandleFuncE("/api/feeds/{feedID}", srvr.deleteFeed).Methods(http.MethodDelete)
	r.HandleFuncE("/api/feeds/{feedID}/process", srvr.postFeedProcess).Methods(http.MethodPost)
	r.HandleFuncE("/api/feeds/{feedID}/episodes", srvr.getFeedEpisodes).Methods(http.MethodGet)

	// Episodes
	r.HandleFuncE("/api/episodes", srvr.postEpisodes).Methods(http.MethodPost)
	r.HandleFuncE("/api/episodes/{episodeID}", srvr.getEpisode).Methods(http.MethodGet)
	r.HandleFuncE("/api/episodes/{episodeID}/workflow", srvr.postEpisodeWorkflow).Methods(http.MethodPost)

	// Tag catalog
	r.HandleFuncE("/api/tags", srvr.getTags).Methods(http.MethodGet)
	r.HandleFuncE("/api/tags", srvr.postTags).Methods(http.MethodPost)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	slog.Debug("configured api server", "port", config.Port)

	return &srvr
}
