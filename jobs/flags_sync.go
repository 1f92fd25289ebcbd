package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/lodestar-app/lodestar/internal/flags"
)

// FlagsSyncJob republishes the flag update signal on a schedule. Gateway
// instances whose subscription silently died re-sync on the next poll
// anyway; this shortens the window.
type FlagsSyncJob struct {
	client *redis.Client
	logger *slog.Logger
}

// NewFlagsSyncJob constructs a FlagsSyncJob.
func NewFlagsSyncJob(client *redis.Client, logger *slog.Logger) *FlagsSyncJob {
	return &FlagsSyncJob{client: client, logger: logger}
}

// HandleFlagsSync processes TaskTypeFlagsSync tasks.
func (j *FlagsSyncJob) HandleFlagsSync(ctx context.Context, t *asynq.Task) error {
	if err := flags.Publish(ctx, j.client); err != nil {
		if j.logger != nil {
			j.logger.Warn("flags sync publish", slog.Any("error", err))
		}
		return err
	}
	return nil
}
