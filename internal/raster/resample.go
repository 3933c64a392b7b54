package raster

import (
	"fmt"
	"image"
	"math"
)

// FitDimensions reports the output size Resample produces for a source of
// srcW x srcH, together with the source window that gets sampled.
//
// With crop the output is exactly dstW x dstH and the window is the centred
// region that, scaled by max(dstW/srcW, dstH/srcH), covers it. Without crop
// the whole source is used and the output keeps the source aspect ratio,
// scaled by min(dstW/srcW, dstH/srcH).
func FitDimensions(srcW, srcH, dstW, dstH int, crop bool) (outW, outH int, window image.Rectangle) {
	sw, sh := float64(srcW), float64(srcH)
	dw, dh := float64(dstW), float64(dstH)

	if crop {
		ratio := math.Max(dw/sw, dh/sh)
		cropW := clampInt(int(math.Round(dw/ratio)), 1, srcW)
		cropH := clampInt(int(math.Round(dh/ratio)), 1, srcH)
		x := (srcW - cropW) / 2
		y := (srcH - cropH) / 2
		return dstW, dstH, image.Rect(x, y, x+cropW, y+cropH)
	}

	ratio := math.Min(dw/sw, dh/sh)
	outW = max(1, int(math.Round(sw*ratio)))
	outH = max(1, int(math.Round(sh*ratio)))
	return outW, outH, image.Rect(0, 0, srcW, srcH)
}

// Resample scales (and with crop, centre-crops) src using an exact
// area-weighted box filter. A new buffer is returned; src is not modified.
//
// Colour is averaged with each source pixel weighted by its overlap area times
// its opacity (alpha/255), so transparent pixels do not bleed their colour into
// the result. Pixels whose sampled region is fully transparent come out black.
// The result is always flattened to opaque: the alpha that the filter computes
// is discarded, as baseline outputs are encoded without transparency.
func Resample(src *Buffer, dstW, dstH int, crop bool) (*Buffer, error) {
	if src == nil || src.width < 1 || src.height < 1 {
		return nil, fmt.Errorf("%w: empty source", ErrInvalidDimensions)
	}
	if dstW < 1 || dstH < 1 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidDimensions, dstW, dstH)
	}

	outW, outH, window := FitDimensions(src.width, src.height, dstW, dstH, crop)
	out := resampleArea(src, window, outW, outH)
	for i := 3; i < len(out.pix); i += 4 {
		out.pix[i] = 255
	}
	return out, nil
}

// span lists the source pixels covering one destination pixel along an axis,
// starting at index start, with the covered fraction of each.
type span struct {
	start   int
	weights []float64
}

func spans(dstLen, srcLen int) []span {
	scale := float64(srcLen) / float64(dstLen)
	out := make([]span, dstLen)
	for d := range dstLen {
		s1 := float64(d) * scale
		s2 := float64(d+1) * scale

		first := int(math.Floor(s1))
		last := min(int(math.Ceil(s2))-1, srcLen-1)
		if last < first {
			last = first
		}

		weights := make([]float64, 0, last-first+1)
		for i := first; i <= last; i++ {
			lo := math.Max(s1, float64(i))
			hi := math.Min(s2, float64(i+1))
			weights = append(weights, math.Max(0, hi-lo))
		}
		out[d] = span{start: first, weights: weights}
	}
	return out
}

// resampleArea keeps the filtered alpha; Resample flattens it afterwards.
func resampleArea(src *Buffer, window image.Rectangle, outW, outH int) *Buffer {
	out := &Buffer{width: outW, height: outH, pix: make([]uint8, outW*outH*4)}
	xs := spans(outW, window.Dx())
	ys := spans(outH, window.Dy())

	o := 0
	for y := range outH {
		sy := ys[y]
		for x := range outW {
			sx := xs[x]

			var red, green, blue, alpha, alphaSum, area float64
			for j, wy := range sy.weights {
				row := (window.Min.Y + sy.start + j) * src.width
				for i, wx := range sx.weights {
					w := wx * wy
					p := (row + window.Min.X + sx.start + i) * 4
					pa := float64(src.pix[p+3])
					factor := pa / 255 * w

					red += float64(src.pix[p]) * factor
					green += float64(src.pix[p+1]) * factor
					blue += float64(src.pix[p+2]) * factor
					alpha += pa * w

					alphaSum += factor
					area += w
				}
			}

			if alphaSum > 0 {
				out.pix[o] = clamp8(math.Round(red / alphaSum))
				out.pix[o+1] = clamp8(math.Round(green / alphaSum))
				out.pix[o+2] = clamp8(math.Round(blue / alphaSum))
			}
			if area > 0 {
				out.pix[o+3] = clamp8(math.Round(alpha / area))
			}
			o += 4
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
