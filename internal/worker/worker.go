package worker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

const TaskQueue = "podscribe"

const syncScheduleID = "sync_active_feeds"

type Config struct {
	// How often every active feed is ingested.
	FeedSyncInterval time.Duration
	// Start an episode workflow for each episode a feed sync creates.
	AutoProcess bool
}

// NewWorker sets up the worker with registration of workflows, activities, and schedules.
func NewWorker(ctx context.Context, cli client.Client, cfg Config, store Store, ingestor Ingestor, orch Orchestrator) (worker.Worker, error) {
	if cfg.FeedSyncInterval == 0 {
		cfg.FeedSyncInterval = time.Hour
	}

	a := activities{
		ingestor: ingestor,
		store:    store,
		orch:     orch,
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	if err := registerEverything(ctx, w, a, cfg, cli); err != nil {
		return nil, fmt.Errorf("error registering workflows and activities: %T, %v", err, err)
	}

	return w, nil
}

func registerEverything(ctx context.Context, w worker.Worker, a activities, cfg Config, cli client.Client) error {
	// Workflows
	wfs := workflows{autoProcess: cfg.AutoProcess}
	w.RegisterWorkflow(wfs.ProcessEpisode)
	w.RegisterWorkflow(wfs.ProcessFeed)
	w.RegisterWorkflow(wfs.SyncActiveFeeds)

	// Activities
	w.RegisterActivity(&a)

	// Schedules:
	// Ingest every active feed
	handle := cli.ScheduleClient().GetHandle(ctx, syncScheduleID)
	if _, err := handle.Describe(ctx); err != nil {
		handle, err = cli.ScheduleClient().Create(ctx, client.ScheduleOptions{
			ID: syncScheduleID,
			Spec: client.ScheduleSpec{
				Intervals: []client.ScheduleIntervalSpec{{Every: cfg.FeedSyncInterval}},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        syncScheduleID,
				Workflow:  wfs.SyncActiveFeeds,
				TaskQueue: TaskQueue,
			},
			TriggerImmediately: true,
		})
		if err != nil {
			return err
		}
	}
	// Keep the interval in step with the config
	if err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			sched := input.Description.Schedule
			if sched.Spec != nil {
				sched.Spec.Intervals = []client.ScheduleIntervalSpec{{Every: cfg.FeedSyncInterval}}
			}
			return &client.ScheduleUpdate{
				Schedule: &sched,
			}, nil
		},
	}); err != nil {
		return fmt.Errorf("error updating sync schedule: %w", err)
	}

	return nil
}

// Error types
//
// These are error types in the temporal sense, not the general "go" error types sense.
// They are used since between activities error types are marshaled and type information is lost.
const (
	errTypeInternal = "internal"
	errTypeNotFound = "notFound"
)
