package raster

import (
	"fmt"
	"math"
)

// AdjustAlpha returns a copy of buf with every alpha value scaled by opacity.
// The input buffer is left untouched.
func AdjustAlpha(buf *Buffer, opacity float64) (*Buffer, error) {
	if err := checkOpacity(opacity); err != nil {
		return nil, err
	}
	out := buf.Clone()
	scaleAlpha(out.pix, opacity)
	return out, nil
}

// AdjustAlphaInPlace is AdjustAlpha without the copy: buf is mutated.
func AdjustAlphaInPlace(buf *Buffer, opacity float64) error {
	if err := checkOpacity(opacity); err != nil {
		return err
	}
	scaleAlpha(buf.pix, opacity)
	return nil
}

func checkOpacity(opacity float64) error {
	if math.IsNaN(opacity) || opacity < 0 || opacity > 1 {
		return fmt.Errorf("%w: %v not in [0,1]", ErrInvalidOpacity, opacity)
	}
	return nil
}

func scaleAlpha(pix []uint8, opacity float64) {
	for i := 3; i < len(pix); i += 4 {
		pix[i] = clamp8(math.Round(float64(pix[i]) * opacity))
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
