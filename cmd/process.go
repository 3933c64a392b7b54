package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rm-hull/image-watermarker/internal"
	"github.com/rm-hull/image-watermarker/internal/models/manifest"
	"github.com/rs/zerolog/log"
)

// Process renders each file (or http(s) URL) into every profile and prints
// the manifests as JSON.
func Process(sources []string, configPath, outDir string, workers int) error {
	ctx := context.Background()

	service, _, err := newService(ctx, configPath, outDir, outDir, workers)
	if err != nil {
		return err
	}

	manifests := make([]*manifest.Manifest, 0, len(sources))
	var errs []error
	for _, source := range sources {
		m, err := processSource(ctx, service, source)
		if err != nil {
			log.Error().Err(err).Str("source", source).Msg("processing failed")
			errs = append(errs, fmt.Errorf("%s: %w", source, err))
		}
		if m != nil {
			manifests = append(manifests, m)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifests); err != nil {
		return fmt.Errorf("failed to write manifests: %w", err)
	}
	return errors.Join(errs...)
}

func processSource(ctx context.Context, service *internal.Service, source string) (*manifest.Manifest, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return service.ProcessFromURL(ctx, source)
	}
	return service.ProcessFile(ctx, source)
}
