package export

import (
	"context"
	"fmt"
	"path"

	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/rm-hull/image-watermarker/internal/models/manifest"
	"github.com/rm-hull/image-watermarker/internal/raster"
	"github.com/rm-hull/image-watermarker/internal/storage"
	"github.com/rs/zerolog/log"
)

// Exporter encodes finished renditions and hands them to a store under
// <prefix>/<profile><ext>.
type Exporter struct {
	store       storage.Store
	prefix      string
	contentType string
}

func NewExporter(store storage.Store, prefix, contentType string) *Exporter {
	return &Exporter{
		store:       store,
		prefix:      prefix,
		contentType: contentType,
	}
}

// Key returns the storage key the profile's output is written to.
func (e *Exporter) Key(profile config.Profile) string {
	return path.Join(e.prefix, profile.Name+Extension(e.contentType))
}

func (e *Exporter) Export(ctx context.Context, profile config.Profile, buf *raster.Buffer) (*manifest.Output, error) {
	data, err := Encode(buf, e.contentType, profile.Quality)
	if err != nil {
		return nil, err
	}

	key := e.Key(profile)
	result, err := e.store.Put(ctx, key, data, e.contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}

	log.Debug().
		Str("profile", profile.Name).
		Str("key", key).
		Int64("bytes", result.Size).
		Msg("output stored")

	out := &manifest.Output{
		Profile:     profile.Name,
		Key:         result.Key,
		URL:         result.URL,
		Width:       buf.Width(),
		Height:      buf.Height(),
		Bytes:       result.Size,
		ContentType: result.ContentType,
	}
	if profile.HasWatermark() {
		out.Watermark = string(profile.Watermark)
	}
	return out, nil
}
