package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// NewScheduler sweeps the inbox once immediately and then every interval, to
// pick up files the watcher missed.
func NewScheduler(ctx context.Context, inbox *Inbox, interval time.Duration) (gocron.Scheduler, error) {
	sweep(ctx, inbox)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sweep, ctx, inbox),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}

func sweep(ctx context.Context, inbox *Inbox) {
	if err := inbox.Sweep(ctx); err != nil {
		log.Error().Err(err).Str("inbox", inbox.Dir()).Msg("inbox sweep failed")
	}
}
