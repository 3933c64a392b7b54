package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Inbox serialises sweeps of a directory of pending source images, so the
// watcher and the scheduler never process the same file twice.
type Inbox struct {
	mu       sync.Mutex
	dir      string
	poolSize int
	service  *Service
}

func NewInbox(dir string, poolSize int, service *Service) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox %s: %w", dir, err)
	}
	return &Inbox{dir: dir, poolSize: poolSize, service: service}, nil
}

func (in *Inbox) Dir() string {
	return in.dir
}

// Sweep processes everything currently in the inbox and blocks until done.
func (in *Inbox) Sweep(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	processor, err := NewProcessor(in.dir, in.poolSize, in.service)
	if err != nil {
		return err
	}
	if len(processor.Files()) == 0 {
		return nil
	}

	processor.StartWorkers(ctx)
	processor.DispatchJobs()
	return errors.Join(processor.Wait()...)
}
