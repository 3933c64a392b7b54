package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rm-hull/image-watermarker/internal"
	"github.com/rm-hull/image-watermarker/internal/decode"
	"github.com/rm-hull/image-watermarker/internal/fetch"
	"github.com/rm-hull/image-watermarker/internal/models/manifest"
	"github.com/rm-hull/image-watermarker/internal/raster"
	"github.com/rs/zerolog/log"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"
)

const imagesPath = "/v1/images"

func ApiServer(rootDir, configPath string, port int, debug bool) {
	internal.ShowVersion()
	internal.UserInfo()
	internal.EnvironmentVars()

	if err := os.MkdirAll(rootDir, 0755); err != nil {
		log.Fatal().Err(err).Str("root", rootDir).Msg("failed to create root folder")
	}

	service, cfg, err := newService(context.Background(), configPath, rootDir, imagesPath, runtime.NumCPU())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	staticDir := rootDir
	if cfg.Storage.Enabled() {
		staticDir = ""
	}

	r, err := newRouter(service, staticDir, debug)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize router")
	}

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("starting HTTP API server")
	if err := r.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Int("port", port).Msg("HTTP API server failed to start")
	}
}

// newRouter wires the API. Outputs are served from staticDir when it is set.
func newRouter(service *internal.Service, staticDir string, debug bool) (*gin.Engine, error) {
	r := gin.New()

	prometheus := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prometheus.Instrument(),
	)

	if debug {
		log.Warn().Msg("pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	if err := healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{}); err != nil {
		return nil, fmt.Errorf("failed to initialize healthcheck: %w", err)
	}

	r.MaxMultipartMemory = fetch.MaxImageSize
	r.POST(imagesPath, uploadHandler(service))
	if staticDir != "" {
		r.Static(imagesPath, staticDir)
	}
	return r, nil
}

// uploadHandler accepts a multipart "image" field, or a source to fetch in
// the url query parameter, and replies with the manifest of the outputs.
func uploadHandler(service *internal.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var m *manifest.Manifest
		var err error

		if url := c.Query("url"); url != "" {
			m, err = service.ProcessFromURL(ctx, url)
		} else {
			var data []byte
			data, err = readUpload(c)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			m, err = service.ProcessFromData(ctx, data)
		}

		switch {
		case err == nil:
			c.JSON(http.StatusOK, m)
		case m != nil && len(m.Outputs) > 0:
			c.JSON(http.StatusMultiStatus, m)
		default:
			log.Error().Err(err).Msg("failed to process image")
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
		}
	}
}

func readUpload(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, errors.New("no image provided: expected multipart field 'image' or 'url' query parameter")
	}
	if header.Size > fetch.MaxImageSize {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", header.Size, fetch.MaxImageSize)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return io.ReadAll(file)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, decode.ErrUnsupported), errors.Is(err, raster.ErrInvalidDimensions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
