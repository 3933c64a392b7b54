package raster

import (
	"math"
	"strings"
)

// Anchor selects the corner a watermark is placed against.
type Anchor struct {
	Top  bool
	Left bool
}

var (
	TopLeft     = Anchor{Top: true, Left: true}
	TopRight    = Anchor{Top: true, Left: false}
	BottomLeft  = Anchor{Top: false, Left: true}
	BottomRight = Anchor{Top: false, Left: false}
)

// ParseAnchor reads positions such as "top-right" or "bottom left". Anything
// not mentioning "top" is anchored to the bottom, and anything not mentioning
// "left" to the right.
func ParseAnchor(position string) Anchor {
	position = strings.ToLower(position)
	return Anchor{
		Top:  strings.Contains(position, "top"),
		Left: strings.Contains(position, "left"),
	}
}

func (a Anchor) String() string {
	v, h := "bottom", "right"
	if a.Top {
		v = "top"
	}
	if a.Left {
		h = "left"
	}
	return v + "-" + h
}

// Offset returns where the top-left corner of a markW x markH watermark lands
// inside a targetW x targetH image. The result may be negative or overflow the
// target when the watermark does not fit.
func (a Anchor) Offset(targetW, targetH, markW, markH, padding int) (x, y int) {
	x, y = padding, padding
	if !a.Left {
		x = targetW - markW - padding
	}
	if !a.Top {
		y = targetH - markH - padding
	}
	return x, y
}

// Composite draws mark over target with source-over blending and returns
// target, which is modified in place. Only the overlapping region is touched;
// target alpha is left as it was. A nil mark leaves target unchanged.
func Composite(target, mark *Buffer, anchor Anchor, padding int) *Buffer {
	if target == nil || mark == nil {
		return target
	}

	ox, oy := anchor.Offset(target.width, target.height, mark.width, mark.height, padding)

	x0, y0 := max(ox, 0), max(oy, 0)
	x1 := min(ox+mark.width, target.width)
	y1 := min(oy+mark.height, target.height)

	for ty := y0; ty < y1; ty++ {
		my := ty - oy
		for tx := x0; tx < x1; tx++ {
			mx := tx - ox
			s := (my*mark.width + mx) * 4
			d := (ty*target.width + tx) * 4

			sa := mark.pix[s+3]
			switch sa {
			case 0:
				continue
			case 255:
				target.pix[d] = mark.pix[s]
				target.pix[d+1] = mark.pix[s+1]
				target.pix[d+2] = mark.pix[s+2]
				continue
			}

			a := float64(sa)
			for c := range 3 {
				v := (float64(mark.pix[s+c])*a + float64(target.pix[d+c])*(255-a)) / 255
				target.pix[d+c] = clamp8(math.Round(v))
			}
		}
	}
	return target
}
