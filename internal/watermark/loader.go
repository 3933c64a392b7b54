// Package watermark loads the configured watermark images once, fades them
// to the configured opacity and keeps them ready for compositing.
package watermark

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/rm-hull/image-watermarker/internal/decode"
	"github.com/rm-hull/image-watermarker/internal/fetch"
	"github.com/rm-hull/image-watermarker/internal/raster"
	"github.com/rm-hull/image-watermarker/internal/raster/stage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Set holds pre-adjusted watermark buffers by key. It is read-only once
// loaded and safe to share between goroutines.
type Set map[config.WatermarkKey]*raster.Buffer

// Get returns the watermark for key, or false when none is configured.
func (s Set) Get(key config.WatermarkKey) (*raster.Buffer, bool) {
	buf, ok := s[key]
	return buf, ok
}

type Loader struct {
	fetcher fetch.Client
}

func NewLoader(fetcher fetch.Client) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load reads every location concurrently and returns once all of them have
// completed. Locations are local paths or http(s) URLs. When opacity is not 1
// each image's alpha is scaled exactly once here. Any single failure fails
// the whole load.
func (l *Loader) Load(ctx context.Context, locations map[config.WatermarkKey]string, opacity float64) (Set, error) {
	var mu sync.Mutex
	set := make(Set, len(locations))
	fade := &stage.OpacityStage{Opacity: opacity}

	g, ctx := errgroup.WithContext(ctx)
	for key, location := range locations {
		g.Go(func() error {
			buf, err := l.loadOne(ctx, location)
			if err != nil {
				return fmt.Errorf("failed to load watermark %s from %s: %w", key, location, err)
			}

			buf, err = fade.Process(buf)
			if err != nil {
				return fmt.Errorf("failed to apply opacity to watermark %s: %w", key, err)
			}

			mu.Lock()
			set[key] = buf
			mu.Unlock()

			log.Info().
				Str("key", string(key)).
				Str("location", location).
				Int("width", buf.Width()).
				Int("height", buf.Height()).
				Msg("watermark loaded")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

func (l *Loader) loadOne(ctx context.Context, location string) (*raster.Buffer, error) {
	r, err := l.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()

	buf, _, err := decode.Image(r)
	return buf, err
}

func (l *Loader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if isURL(location) {
		if l.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for %s", location)
		}
		return l.fetcher.Fetch(ctx, location)
	}
	return os.Open(location)
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
