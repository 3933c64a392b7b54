package internal

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/rm-hull/image-watermarker/internal/decode"
	"github.com/rm-hull/image-watermarker/internal/export"
	"github.com/rm-hull/image-watermarker/internal/fetch"
	"github.com/rm-hull/image-watermarker/internal/models/manifest"
	"github.com/rm-hull/image-watermarker/internal/pipeline"
	"github.com/rm-hull/image-watermarker/internal/raster"
	"github.com/rm-hull/image-watermarker/internal/storage"
	"github.com/rm-hull/image-watermarker/internal/watermark"
	"github.com/rs/zerolog/log"
)

const manifestFile = "manifest.json"

var ErrNoOutputs = errors.New("no profile produced an output")

// Service renders source images into every configured profile and stores the
// results, keyed by the content hash of the source.
type Service struct {
	cfg        *config.Config
	watermarks watermark.Set
	anchor     raster.Anchor
	store      storage.Store
	fetcher    fetch.Client
	workers    int
}

func NewService(cfg *config.Config, watermarks watermark.Set, store storage.Store, fetcher fetch.Client, workers int) *Service {
	return &Service{
		cfg:        cfg,
		watermarks: watermarks,
		anchor:     raster.ParseAnchor(cfg.Position),
		store:      store,
		fetcher:    fetcher,
		workers:    workers,
	}
}

// ContentKey derives a short, sharded storage prefix from the source bytes.
func ContentKey(data []byte) string {
	hash := sha256.Sum256(data)
	encoder := base32.StdEncoding.WithPadding(base32.NoPadding)
	key := strings.ToLower(encoder.EncodeToString(hash[:]))[:12]
	return key[:2] + "/" + key[2:]
}

func (s *Service) ProcessFromURL(ctx context.Context, url string) (*manifest.Manifest, error) {
	if s.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return s.ProcessFromData(ctx, data)
}

func (s *Service) ProcessFile(ctx context.Context, filename string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return s.ProcessFromData(ctx, data)
}

// ProcessFromData renders data into every profile. A source seen before is
// not rendered again. When only some profiles fail, the manifest lists both
// the outputs and the failures and the joined profile errors are returned
// alongside it.
func (s *Service) ProcessFromData(ctx context.Context, data []byte) (*manifest.Manifest, error) {
	key := ContentKey(data)
	logger := log.With().Str("key", key).Logger()

	exists, err := s.store.Exists(ctx, path.Join(key, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to check if %s exists: %w", key, err)
	}
	if exists {
		logger.Info().Msg("source already processed, using existing outputs")
		return s.deduped(key), nil
	}

	src, format, err := decode.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	exporter := export.NewExporter(s.store, key, s.cfg.Type)
	pipe := pipeline.New(s.cfg.Profiles, s.watermarks, s.anchor, s.cfg.Padding, exporter)

	start := time.Now()
	results, runErr := pipe.RunConcurrent(ctx, src, s.workers)
	outputs, failures := pipeline.Outputs(results)

	m := &manifest.Manifest{
		Key: key,
		Source: manifest.Source{
			Width:  src.Width(),
			Height: src.Height(),
			Format: format,
			Bytes:  len(data),
		},
		Outputs:     outputs,
		Failures:    failures,
		ProcessedAt: time.Now().UTC(),
	}

	logger.Info().
		Str("format", format).
		Int("width", src.Width()).
		Int("height", src.Height()).
		Int("outputs", len(outputs)).
		Int("failures", len(failures)).
		Dur("took", time.Since(start)).
		Msg("processed image")

	if len(outputs) == 0 {
		return m, errors.Join(ErrNoOutputs, runErr)
	}
	if runErr != nil {
		return m, runErr
	}

	if err := s.writeManifest(ctx, m); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Service) writeManifest(ctx context.Context, m *manifest.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if _, err := s.store.Put(ctx, path.Join(m.Key, manifestFile), data, "application/json"); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}
	return nil
}

// deduped describes the outputs of an already processed source without
// rendering it again. Dimensions are not known at this point.
func (s *Service) deduped(key string) *manifest.Manifest {
	exporter := export.NewExporter(s.store, key, s.cfg.Type)
	outputs := make([]manifest.Output, 0, len(s.cfg.Profiles))
	for _, profile := range s.cfg.Profiles {
		out := manifest.Output{
			Profile:     profile.Name,
			Key:         exporter.Key(profile),
			URL:         s.store.URL(exporter.Key(profile)),
			ContentType: s.cfg.Type,
		}
		if profile.HasWatermark() {
			out.Watermark = string(profile.Watermark)
		}
		outputs = append(outputs, out)
	}
	return &manifest.Manifest{
		Key:         key,
		Outputs:     outputs,
		Deduped:     true,
		ProcessedAt: time.Now().UTC(),
	}
}
