package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rm-hull/image-watermarker/internal"
	"github.com/rs/zerolog/log"
)

// Watch processes images dropped into inboxDir until interrupted. Files are
// picked up by filesystem events and, as a fallback, by a periodic sweep.
func Watch(inboxDir, rootDir, configPath string, interval time.Duration, workers int) error {
	internal.ShowVersion()
	internal.UserInfo()
	internal.EnvironmentVars()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, _, err := newService(ctx, configPath, rootDir, rootDir, 1)
	if err != nil {
		return err
	}

	inbox, err := internal.NewInbox(inboxDir, workers, service)
	if err != nil {
		return err
	}

	watcher, err := internal.NewWatcher(inbox, internal.DefaultDebounce)
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()
	go watcher.Run(ctx)

	sched, err := internal.NewScheduler(ctx, inbox, interval)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}
