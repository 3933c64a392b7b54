// Package decode turns encoded images into raster buffers.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rm-hull/image-watermarker/internal/raster"

	// Register the WebP decoder alongside the stdlib formats imaging pulls in.
	_ "golang.org/x/image/webp"
)

// ErrUnsupported marks input that is not an image in a known format.
var ErrUnsupported = errors.New("unsupported image")

// MaxPixels bounds the decoded size of any single image (about 400 MB of RGBA).
const MaxPixels = 100_000_000

// Image decodes r, honouring any EXIF orientation, and returns the buffer
// along with the detected format name ("jpeg", "png", "webp", ...).
func Image(r io.Reader) (*raster.Buffer, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return Bytes(data)
}

// Bytes is Image for data already in memory.
func Bytes(data []byte) (*raster.Buffer, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to decode image header: %w", ErrUnsupported, err)
	}
	if cfg.Width < 1 || cfg.Height < 1 || cfg.Width*cfg.Height > MaxPixels {
		return nil, "", fmt.Errorf("%w: %s image is %dx%d", raster.ErrInvalidDimensions, format, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to decode image: %w", ErrUnsupported, err)
	}

	buf, err := raster.FromImage(img)
	if err != nil {
		return nil, "", err
	}
	return buf, format, nil
}

// File decodes the image stored at path.
func File(path string) (*raster.Buffer, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	buf, format, err := Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return buf, format, nil
}
