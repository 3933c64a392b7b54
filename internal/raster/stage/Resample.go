package stage

import (
	"github.com/rm-hull/image-watermarker/internal/raster"
)

type ResampleStage struct {
	Width  int
	Height int
	Crop   bool
}

// Process scales the buffer to fit Width x Height, or to exactly that size
// when Crop is set. The output is a new, fully opaque buffer.
func (s *ResampleStage) Process(buf *raster.Buffer) (*raster.Buffer, error) {
	return raster.Resample(buf, s.Width, s.Height, s.Crop)
}
