package watermark

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (io.ReadCloser, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	return m.FetchFunc(ctx, url)
}

func markPNG(t *testing.T, w, h int, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "watermark.png")
	require.NoError(t, os.WriteFile(localPath, markPNG(t, 4, 2, 255), 0644))

	highres := markPNG(t, 8, 4, 200)
	var fetched atomic.Int32
	fetcher := &mockFetcher{
		FetchFunc: func(ctx context.Context, url string) (io.ReadCloser, error) {
			fetched.Add(1)
			assert.Equal(t, "https://cdn.example.com/watermark-high-res.png", url)
			return io.NopCloser(bytes.NewReader(highres)), nil
		},
	}

	set, err := NewLoader(fetcher).Load(context.Background(), map[config.WatermarkKey]string{
		config.WatermarkStandard: localPath,
		config.WatermarkHighRes:  "https://cdn.example.com/watermark-high-res.png",
	}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetched.Load())
	require.Len(t, set, 2)

	standard, ok := set.Get(config.WatermarkStandard)
	require.True(t, ok)
	assert.Equal(t, 4, standard.Width())
	_, _, _, a, _ := standard.Get(0, 0)
	assert.Equal(t, uint8(128), a)

	large, ok := set.Get(config.WatermarkHighRes)
	require.True(t, ok)
	assert.Equal(t, 8, large.Width())
	_, _, _, a, _ = large.Get(7, 3)
	assert.Equal(t, uint8(100), a)

	_, ok = set.Get(config.WatermarkNone)
	assert.False(t, ok)
}

func TestLoadFullOpacityKeepsAlpha(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermark.png")
	require.NoError(t, os.WriteFile(path, markPNG(t, 2, 2, 77), 0644))

	set, err := NewLoader(nil).Load(context.Background(), map[config.WatermarkKey]string{
		config.WatermarkStandard: path,
	}, 1)
	require.NoError(t, err)

	_, _, _, a, _ := set[config.WatermarkStandard].Get(1, 1)
	assert.Equal(t, uint8(77), a)
}

func TestLoadFailures(t *testing.T) {
	t.Run("one failure fails the set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "watermark.png")
		require.NoError(t, os.WriteFile(path, markPNG(t, 2, 2, 255), 0644))

		fetcher := &mockFetcher{
			FetchFunc: func(ctx context.Context, url string) (io.ReadCloser, error) {
				return nil, errors.New("http status response from " + url + ": 404 Not Found")
			},
		}

		set, err := NewLoader(fetcher).Load(context.Background(), map[config.WatermarkKey]string{
			config.WatermarkStandard: path,
			config.WatermarkHighRes:  "http://cdn.example.com/gone.png",
		}, 0.8)
		assert.Nil(t, set)
		assert.ErrorContains(t, err, "failed to load watermark highres")
		assert.ErrorContains(t, err, "404 Not Found")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(nil).Load(context.Background(), map[config.WatermarkKey]string{
			config.WatermarkStandard: filepath.Join(t.TempDir(), "nope.png"),
		}, 0.8)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("url without fetcher", func(t *testing.T) {
		_, err := NewLoader(nil).Load(context.Background(), map[config.WatermarkKey]string{
			config.WatermarkStandard: "https://cdn.example.com/w.png",
		}, 0.8)
		assert.ErrorContains(t, err, "no fetcher configured")
	})

	t.Run("invalid opacity", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "watermark.png")
		require.NoError(t, os.WriteFile(path, markPNG(t, 2, 2, 255), 0644))

		_, err := NewLoader(nil).Load(context.Background(), map[config.WatermarkKey]string{
			config.WatermarkStandard: path,
		}, 1.2)
		assert.ErrorContains(t, err, "failed to apply opacity")
	})
}

func TestLoadEmpty(t *testing.T) {
	set, err := NewLoader(nil).Load(context.Background(), nil, 0.8)
	require.NoError(t, err)
	assert.Empty(t, set)
}
