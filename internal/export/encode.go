package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/rm-hull/image-watermarker/internal/raster"
)

// Encode serialises buf as contentType. quality is in [0,1] and only affects
// JPEG, where it maps onto the 1-100 scale.
func Encode(buf *raster.Buffer, contentType string, quality float64) ([]byte, error) {
	var encoder imgio.Encoder
	switch contentType {
	case "image/jpeg", "image/jpg":
		encoder = imgio.JPEGEncoder(jpegQuality(quality))
	case "image/png":
		encoder = imgio.PNGEncoder()
	case "image/bmp":
		encoder = imgio.BMPEncoder()
	default:
		return nil, fmt.Errorf("unsupported output type %q", contentType)
	}

	var out bytes.Buffer
	if err := encoder(&out, buf.ToNRGBA()); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", contentType, err)
	}
	return out.Bytes(), nil
}

// Extension returns the file suffix used for contentType.
func Extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}

func jpegQuality(quality float64) int {
	q := int(math.Round(quality * 100))
	return max(1, min(q, 100))
}
