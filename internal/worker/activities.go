package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	pserrs "github.com/jdholdren/podscribe/internal/errors"
	"github.com/jdholdren/podscribe/internal/feeds"
	"github.com/jdholdren/podscribe/internal/pipeline"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/transcribe"
)

// How often a running episode reports that it's alive.
const heartbeatEvery = 10 * time.Second

type (
	Ingestor interface {
		ProcessFeed(ctx context.Context, feedID string) (feeds.Report, error)
	}

	Store interface {
		Feed(ctx context.Context, id string) (podscribe.Feed, error)
		ActiveFeeds(ctx context.Context) ([]podscribe.Feed, error)
		Episode(ctx context.Context, id string) (podscribe.Episode, error)
	}

	Orchestrator interface {
		RunWorkflow(ctx context.Context, episodeID string) (pipeline.Report, error)
	}
)

type activities struct {
	ingestor Ingestor
	store    Store
	orch     Orchestrator
}

// Instance to make the workflow a bit more readable
var acts = activities{}

// Lists the ids of every feed that should be synced.
func (a activities) ActiveFeedIDs(ctx context.Context) ([]string, error) {
	active, err := a.store.ActiveFeeds(ctx)
	if err != nil {
		return nil, temporal.NewApplicationError("error listing active feeds", errTypeInternal, pserrs.E(err))
	}

	ids := make([]string, 0, len(active))
	for _, f := range active {
		ids = append(ids, f.ID)
	}

	return ids, nil
}

// Fetches the feed and ingests its entries.
func (a activities) IngestFeed(ctx context.Context, feedID string) (feeds.Report, error) {
	if _, err := a.store.Feed(ctx, feedID); errors.Is(err, podscribe.ErrNotFound) {
		return feeds.Report{}, temporal.NewNonRetryableApplicationError("feed not found", errTypeNotFound, nil, pserrs.E(http.StatusNotFound, "feed not found"))
	}

	report, err := a.ingestor.ProcessFeed(ctx, feedID)
	if err != nil {
		return feeds.Report{}, temporal.NewApplicationError("error processing feed", errTypeInternal, pserrs.E(err))
	}

	activity.GetLogger(ctx).Info("feed ingested",
		"feed_id", feedID,
		"created", report.Created,
		"existing", report.Existing,
		"failed", report.Failed,
	)

	return report, nil
}

// Runs every outstanding stage for the episode.
//
// Heartbeats while it works so a cancelled workflow reaches the transcription
// poll loop, which then cleans up its remote job.
func (a activities) RunEpisode(ctx context.Context, episodeID string) (pipeline.Report, error) {
	if _, err := a.store.Episode(ctx, episodeID); errors.Is(err, podscribe.ErrNotFound) {
		return pipeline.Report{}, temporal.NewNonRetryableApplicationError("episode not found", errTypeNotFound, nil, pserrs.E(http.StatusNotFound, "episode not found"))
	}

	ctx = transcribe.WithHeartbeat(ctx, activity.RecordHeartbeat)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(heartbeatEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, episodeID)
			}
		}
	}()

	report, err := a.orch.RunWorkflow(ctx, episodeID)
	if err != nil {
		return pipeline.Report{}, temporal.NewApplicationError("error running episode workflow", errTypeInternal, pserrs.E(err))
	}

	activity.GetLogger(ctx).Info("episode processed",
		"episode_id", episodeID,
		"errors", len(report.Errors),
	)

	return report, nil
}
