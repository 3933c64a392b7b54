package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/rm-hull/image-watermarker/internal/raster"
	"github.com/rm-hull/image-watermarker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, "http://localhost:8080/v1/images")
	require.NoError(t, err)

	exporter := NewExporter(store, "abc123", "image/png")
	buf, err := raster.Fill(5, 3, 0, 0, 255, 255)
	require.NoError(t, err)

	profile := config.Profile{Name: "standard", MaxWidth: 5, MaxHeight: 3, Watermark: config.WatermarkStandard, Quality: 0.8}
	out, err := exporter.Export(context.Background(), profile, buf)
	require.NoError(t, err)

	assert.Equal(t, "standard", out.Profile)
	assert.Equal(t, "abc123/standard.png", out.Key)
	assert.Equal(t, "http://localhost:8080/v1/images/abc123/standard.png", out.URL)
	assert.Equal(t, 5, out.Width)
	assert.Equal(t, 3, out.Height)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Equal(t, "standard", out.Watermark)

	info, err := os.Stat(filepath.Join(dir, "abc123", "standard.png"))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), out.Bytes)
}

func TestExporterNoWatermark(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	buf, err := raster.NewBlank(2, 2)
	require.NoError(t, err)

	exporter := NewExporter(store, "k", "image/jpeg")
	out, err := exporter.Export(context.Background(), config.Profile{Name: "low", Watermark: config.WatermarkNone, Quality: 0.8}, buf)
	require.NoError(t, err)
	assert.Empty(t, out.Watermark)
	assert.Equal(t, "k/low.jpg", out.Key)
}

type failingStore struct{ storage.Store }

func (failingStore) Put(context.Context, string, []byte, string) (*storage.UploadResult, error) {
	return nil, assert.AnError
}

func TestExporterStoreFailure(t *testing.T) {
	buf, err := raster.NewBlank(1, 1)
	require.NoError(t, err)

	exporter := NewExporter(failingStore{}, "k", "image/png")
	_, err = exporter.Export(context.Background(), config.Profile{Name: "low"}, buf)
	assert.ErrorContains(t, err, "failed to store k/low.png")
	assert.ErrorIs(t, err, assert.AnError)
}
