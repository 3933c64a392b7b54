package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher sweeps the inbox shortly after files stop arriving in it.
type Watcher struct {
	inbox    *Inbox
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(inbox *Inbox, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(inbox.Dir()); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch folder %s: %w", inbox.Dir(), err)
	}

	return &Watcher{
		inbox:    inbox,
		watcher:  fsWatcher,
		debounce: debounce,
	}, nil
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	log.Info().Str("inbox", w.inbox.Dir()).Msg("watching inbox")

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.stopTimer()
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !IsInboxImage(event.Name) {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("inbox event")
			w.schedule(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// schedule (re)starts the debounce timer; a burst of events causes one sweep.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		sweep(ctx, w.inbox)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}
