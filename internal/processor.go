package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Processor renders every image waiting in an inbox directory using a fixed
// pool of workers. Sources are moved to processed/ or failed/ afterwards.
type Processor struct {
	startTime time.Time
	endTime   time.Time
	inboxDir  string
	poolSize  int
	jobs      chan string
	results   chan error
	service   *Service
	files     []string
}

func NewProcessor(inboxDir string, poolSize int, service *Service) (*Processor, error) {
	if poolSize < 1 {
		return nil, errors.New("pool size must be at least 1")
	}

	files, err := ListInbox(inboxDir)
	if err != nil {
		return nil, err
	}

	return &Processor{
		startTime: time.Now(),
		inboxDir:  inboxDir,
		poolSize:  poolSize,
		jobs:      make(chan string),
		results:   make(chan error),
		service:   service,
		files:     files,
	}, nil
}

// ListInbox returns the image files directly inside dir, skipping hidden and
// partially written files.
func ListInbox(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsInboxImage(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func IsInboxImage(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(base)))
}

func (p *Processor) Files() []string {
	return p.files
}

// DispatchJobs sends the inbox files to the workers and closes the queue.
func (p *Processor) DispatchJobs() {
	go func() {
		for _, file := range p.files {
			p.jobs <- file
		}
		close(p.jobs)
	}()
}

func (p *Processor) StartWorkers(ctx context.Context) {
	log.Debug().Int("pool_size", p.poolSize).Msg("starting workers")

	for i := range p.poolSize {
		go p.worker(ctx, i)
	}
}

func (p *Processor) worker(ctx context.Context, i int) {
	for file := range p.jobs {
		p.results <- p.processFile(ctx, file)
	}
	log.Debug().Int("worker", i).Msg("worker finished")
}

func (p *Processor) processFile(ctx context.Context, file string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := p.service.ProcessFile(ctx, file)
	if err != nil {
		if moveErr := p.moveTo(file, FailedDir); moveErr != nil {
			log.Error().Err(moveErr).Str("file", file).Msg("failed to move source")
		}
		return fmt.Errorf("failed to process %s: %w", file, err)
	}

	if err := p.moveTo(file, ProcessedDir); err != nil {
		return err
	}

	log.Info().
		Str("file", filepath.Base(file)).
		Str("key", m.Key).
		Bool("deduped", m.Deduped).
		Msg("inbox file processed")
	return nil
}

func (p *Processor) moveTo(file, dir string) error {
	target := filepath.Join(p.inboxDir, dir)
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if err := os.Rename(file, filepath.Join(target, filepath.Base(file))); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", file, dir, err)
	}
	return nil
}

func (p *Processor) Wait() []error {
	errs := make([]error, 0, len(p.files))
	for range p.files {
		if err := <-p.results; err != nil {
			errs = append(errs, err)
		}
	}
	p.endTime = time.Now()

	log.Info().
		Int("files", len(p.files)).
		Int("errors", len(errs)).
		Dur("elapsed", p.endTime.Sub(p.startTime)).
		Msg("inbox processed")
	return errs
}
