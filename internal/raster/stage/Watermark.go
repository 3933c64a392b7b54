package stage

import (
	"github.com/rm-hull/image-watermarker/internal/raster"
)

type WatermarkStage struct {
	Mark    *raster.Buffer
	Anchor  raster.Anchor
	Padding int
}

// Process blends Mark onto the buffer at the anchored corner, Padding pixels
// in from the edges. The input buffer is modified and returned.
func (s *WatermarkStage) Process(buf *raster.Buffer) (*raster.Buffer, error) {
	return raster.Composite(buf, s.Mark, s.Anchor, s.Padding), nil
}
