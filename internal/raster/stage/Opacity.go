package stage

import (
	"github.com/rm-hull/image-watermarker/internal/raster"
)

type OpacityStage struct {
	Opacity float64
}

// Process scales the alpha channel by Opacity, returning a copy
// A value of 1 leaves the buffer as is
func (s *OpacityStage) Process(buf *raster.Buffer) (*raster.Buffer, error) {
	if s.Opacity == 1 {
		return buf, nil
	}
	return raster.AdjustAlpha(buf, s.Opacity)
}
