package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rm-hull/image-watermarker/internal"
	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/rm-hull/image-watermarker/internal/models/manifest"
	"github.com/rm-hull/image-watermarker/internal/raster"
	"github.com/rm-hull/image-watermarker/internal/storage"
	"github.com/rm-hull/image-watermarker/internal/watermark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	data []byte
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "upload.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestApiServer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Type = "image/png"
	cfg.Profiles = []config.Profile{
		{Name: "standard", MaxWidth: 64, MaxHeight: 32, Crop: true, Watermark: config.WatermarkStandard, Quality: 0.8},
		{Name: "thumbnail", MaxWidth: 16, MaxHeight: 16, Crop: false, Watermark: config.WatermarkNone, Quality: 0.8},
	}

	root := t.TempDir()
	store, err := storage.NewFileStore(root, imagesPath)
	require.NoError(t, err)

	mark, err := raster.Fill(8, 8, 255, 255, 255, 200)
	require.NoError(t, err)

	remote := encodePNG(t, 40, 40, color.NRGBA{G: 200, A: 255})
	service := internal.NewService(cfg, watermark.Set{config.WatermarkStandard: mark}, store, &stubFetcher{data: remote}, 2)

	r, err := newRouter(service, root, false)
	require.NoError(t, err)

	t.Run("upload", func(t *testing.T) {
		body, contentType := multipartBody(t, "image", encodePNG(t, 100, 50, color.NRGBA{R: 200, A: 255}))
		req := httptest.NewRequest(http.MethodPost, imagesPath, body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var m manifest.Manifest
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
		assert.Equal(t, 100, m.Source.Width)
		assert.Equal(t, "png", m.Source.Format)
		require.Len(t, m.Outputs, 2)
		assert.Equal(t, 64, m.Outputs[0].Width)
		assert.Equal(t, 32, m.Outputs[0].Height)
		assert.Equal(t, 16, m.Outputs[1].Width)
		assert.Equal(t, 8, m.Outputs[1].Height)

		get := httptest.NewRecorder()
		r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, m.Outputs[1].URL, nil))
		require.Equal(t, http.StatusOK, get.Code)

		img, err := png.Decode(get.Body)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
	})

	t.Run("url", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, imagesPath+"?url=https://example.com/leaf.png", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var m manifest.Manifest
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
		assert.Equal(t, internal.ContentKey(remote), m.Key)
		assert.Equal(t, 40, m.Source.Height)
	})

	t.Run("missing image", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, imagesPath, body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "no image provided")
	})

	t.Run("not an image", func(t *testing.T) {
		body, contentType := multipartBody(t, "image", []byte("GIF? no."))
		req := httptest.NewRequest(http.MethodPost, imagesPath, body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
