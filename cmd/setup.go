package cmd

import (
	"context"
	"fmt"

	"github.com/rm-hull/image-watermarker/internal"
	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/rm-hull/image-watermarker/internal/fetch"
	"github.com/rm-hull/image-watermarker/internal/storage"
	"github.com/rm-hull/image-watermarker/internal/watermark"
	"github.com/rs/zerolog/log"
)

// newService loads the configuration and watermarks and picks the output
// store: the configured S3 bucket if any, otherwise rootDir on local disk.
func newService(ctx context.Context, configPath, rootDir, publicBaseURL string, workers int) (*internal.Service, *config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}

	fetcher := fetch.NewHTTPClient()
	marks, err := watermark.NewLoader(fetcher).Load(ctx, cfg.UsedWatermarks(), cfg.Opacity)
	if err != nil {
		return nil, nil, err
	}

	store, err := newStore(ctx, cfg, rootDir, publicBaseURL)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int("profiles", len(cfg.Profiles)).
		Int("watermarks", len(marks)).
		Str("position", cfg.Position).
		Str("type", cfg.Type).
		Bool("s3", cfg.Storage.Enabled()).
		Msg("configuration loaded")

	return internal.NewService(cfg, marks, store, fetcher, workers), cfg, nil
}

func newStore(ctx context.Context, cfg *config.Config, rootDir, publicBaseURL string) (storage.Store, error) {
	if !cfg.Storage.Enabled() {
		return storage.NewFileStore(rootDir, publicBaseURL)
	}

	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Bucket:          cfg.Storage.Bucket,
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretKey,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}
	return store, nil
}
