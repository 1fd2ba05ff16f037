package worker

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	pserrs "github.com/jdholdren/podscribe/internal/errors"
	"github.com/jdholdren/podscribe/internal/feeds"
	"github.com/jdholdren/podscribe/internal/pipeline"
)

type workflows struct {
	autoProcess bool
}

// EpisodeWorkflowID is the id of the workflow processing the episode. There's
// only ever one running per episode.
func EpisodeWorkflowID(episodeID string) string {
	return "process-episode-" + episodeID
}

// ProcessEpisode runs the episode's stages once.
//
// The activity isn't retried: the stages are resumable, so a new run picks up
// where a failed one stopped.
func (workflows) ProcessEpisode(ctx workflow.Context, episodeID string) (pipeline.Report, error) {
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		WaitForCancellation: true, // So the transcription job gets cleaned up
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var report pipeline.Report
	if err := workflow.ExecuteActivity(ctx, acts.RunEpisode, episodeID).Get(ctx, &report); err != nil {
		workflow.GetLogger(ctx).Error("failed to process episode", "episode_id", episodeID, "error", err)
		return pipeline.Report{}, err
	}

	return report, nil
}

// ProcessFeed ingests the feed and, when auto processing is on, starts an
// episode workflow for every episode it created.
func (wfs workflows) ProcessFeed(ctx workflow.Context, feedID string) (feeds.Report, error) {
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3, // 0 is unlimited retries
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)
	l := workflow.GetLogger(ctx)

	var report feeds.Report
	if err := workflow.ExecuteActivity(ctx, acts.IngestFeed, feedID).Get(ctx, &report); err != nil {
		l.Error("failed to ingest feed", "feed_id", feedID, "error", err)
		return feeds.Report{}, err
	}

	if !wfs.autoProcess {
		return report, nil
	}

	for _, episodeID := range report.CreatedEpisodeIDs {
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID:        EpisodeWorkflowID(episodeID),
			ParentClosePolicy: enumspb.PARENT_CLOSE_POLICY_ABANDON, // Episodes outlive the sync
		})

		// Only wait for the start, the episode can take a long time
		child := workflow.ExecuteChildWorkflow(cctx, wfs.ProcessEpisode, episodeID)
		if err := child.GetChildWorkflowExecution().Get(ctx, nil); err != nil {
			l.Error("failed to start episode workflow", "episode_id", episodeID, "error", err)
		}
	}

	return report, nil
}

// SyncActiveFeeds processes every active feed, each on its own.
func (wfs workflows) SyncActiveFeeds(ctx workflow.Context) error {
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)
	l := workflow.GetLogger(ctx)

	var feedIDs []string
	if err := workflow.ExecuteActivity(ctx, acts.ActiveFeedIDs).Get(ctx, &feedIDs); err != nil {
		l.Error("failed to list active feeds", "error", err)
		return err
	}

	wg := workflow.NewWaitGroup(ctx)
	wg.Add(len(feedIDs))
	for _, feedID := range feedIDs {
		workflow.Go(ctx, func(ctx workflow.Context) {
			defer wg.Done()

			if _, err := wfs.ProcessFeed(ctx, feedID); err != nil {
				l.Error("failed to sync feed", "feed_id", feedID, "error", err)
			}
		})
	}

	wg.Wait(ctx)

	return nil
}

// TriggerProcessEpisode starts the episode's workflow, or attaches to the one
// already running. With wait it blocks until the run finishes and returns its
// report.
func TriggerProcessEpisode(ctx context.Context, c client.Client, episodeID string, wait bool) (string, pipeline.Report, error) {
	options := client.StartWorkflowOptions{
		ID:                       EpisodeWorkflowID(episodeID),
		TaskQueue:                TaskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}
	we, err := c.ExecuteWorkflow(ctx, options, workflows{}.ProcessEpisode, episodeID)
	if err != nil {
		return "", pipeline.Report{}, fmt.Errorf("unable to execute workflow: %s", err)
	}
	if !wait {
		return we.GetRunID(), pipeline.Report{}, nil
	}

	var report pipeline.Report
	err = we.Get(ctx, &report)
	apiErr := &pserrs.Error{}
	if asAPIErr(err, &apiErr) {
		return "", pipeline.Report{}, apiErr
	}
	if err != nil {
		return "", pipeline.Report{}, fmt.Errorf("error executing workflow: %s", err)
	}

	return we.GetRunID(), report, nil
}

// TriggerProcessFeed runs the feed's workflow and waits for its report.
func TriggerProcessFeed(ctx context.Context, c client.Client, feedID string) (feeds.Report, error) {
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	we, err := c.ExecuteWorkflow(ctx, options, workflows{}.ProcessFeed, feedID)
	if err != nil {
		return feeds.Report{}, fmt.Errorf("unable to execute workflow: %s", err)
	}

	var report feeds.Report
	err = we.Get(ctx, &report)
	apiErr := &pserrs.Error{}
	if asAPIErr(err, &apiErr) {
		return feeds.Report{}, apiErr
	}
	if err != nil {
		return feeds.Report{}, fmt.Errorf("error executing workflow: %s", err)
	}

	return report, nil
}
