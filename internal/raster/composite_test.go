package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnchor(t *testing.T) {
	tests := map[string]Anchor{
		"top-right":    TopRight,
		"top-left":     TopLeft,
		"bottom-left":  BottomLeft,
		"bottom-right": BottomRight,
		"Top Left":     TopLeft,
		"":             BottomRight,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseAnchor(in), in)
	}
	assert.Equal(t, "top-right", TopRight.String())
	assert.Equal(t, "bottom-left", BottomLeft.String())
}

func TestAnchorOffset(t *testing.T) {
	tests := []struct {
		anchor Anchor
		x, y   int
	}{
		{TopLeft, 25, 25},
		{TopRight, 100 - 20 - 25, 25},
		{BottomLeft, 25, 80 - 10 - 25},
		{BottomRight, 100 - 20 - 25, 80 - 10 - 25},
	}
	for _, tt := range tests {
		t.Run(tt.anchor.String(), func(t *testing.T) {
			x, y := tt.anchor.Offset(100, 80, 20, 10, 25)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestCompositeBlend(t *testing.T) {
	t.Run("opaque mark replaces colour", func(t *testing.T) {
		target, err := Fill(4, 4, 10, 20, 30, 255)
		require.NoError(t, err)
		mark, err := Fill(1, 1, 200, 150, 100, 255)
		require.NoError(t, err)

		Composite(target, mark, TopLeft, 1)
		r, g, b, a, err := target.Get(1, 1)
		require.NoError(t, err)
		assert.Equal(t, []uint8{200, 150, 100, 255}, []uint8{r, g, b, a})
	})

	t.Run("transparent mark leaves colour", func(t *testing.T) {
		target, err := Fill(4, 4, 10, 20, 30, 255)
		require.NoError(t, err)
		mark, err := Fill(4, 4, 200, 150, 100, 0)
		require.NoError(t, err)

		before := target.Clone()
		Composite(target, mark, BottomRight, 0)
		assert.Equal(t, before.Pix(), target.Pix())
	})

	t.Run("source over", func(t *testing.T) {
		target, err := Fill(1, 1, 0, 100, 255, 200)
		require.NoError(t, err)
		mark, err := Fill(1, 1, 255, 0, 100, 51)
		require.NoError(t, err)

		out := Composite(target, mark, TopLeft, 0)
		assert.Same(t, target, out)
		// 255*51/255 + 0 = 51; 0 + 100*204/255 = 80; 100*51/255 + 255*204/255 = 224
		assert.Equal(t, []uint8{51, 80, 224, 200}, target.Pix())
	})

	t.Run("nil mark is a no-op", func(t *testing.T) {
		target, err := Fill(2, 2, 1, 2, 3, 255)
		require.NoError(t, err)
		before := target.Clone()
		assert.Same(t, target, Composite(target, nil, TopRight, 25))
		assert.Equal(t, before.Pix(), target.Pix())
	})
}

func TestCompositeClipping(t *testing.T) {
	t.Run("mark larger than target", func(t *testing.T) {
		target, err := Fill(3, 2, 0, 0, 0, 255)
		require.NoError(t, err)
		mark, err := Fill(10, 10, 255, 255, 255, 255)
		require.NoError(t, err)

		for _, anchor := range []Anchor{TopLeft, TopRight, BottomLeft, BottomRight} {
			tgt := target.Clone()
			assert.NotPanics(t, func() { Composite(tgt, mark, anchor, 25) })
			assert.Len(t, tgt.Pix(), 3*2*4)
		}

		tgt := target.Clone()
		Composite(tgt, mark, TopLeft, 0)
		assertUniform(t, tgt, 255, 255, 255)
	})

	t.Run("partial overlap only touches the overlap", func(t *testing.T) {
		target, err := Fill(4, 4, 0, 0, 0, 255)
		require.NoError(t, err)
		mark, err := Fill(3, 3, 255, 255, 255, 255)
		require.NoError(t, err)

		// top-left with padding 2 places the mark at (2,2) overflowing by one pixel each way
		Composite(target, mark, TopLeft, 2)
		for y := range 4 {
			for x := range 4 {
				r, _, _, a, err := target.Get(x, y)
				require.NoError(t, err)
				assert.Equal(t, uint8(255), a)
				if x >= 2 && y >= 2 {
					assert.Equal(t, uint8(255), r, "(%d,%d)", x, y)
				} else {
					assert.Equal(t, uint8(0), r, "(%d,%d)", x, y)
				}
			}
		}
	})

	t.Run("entirely outside", func(t *testing.T) {
		target, err := Fill(4, 4, 9, 9, 9, 255)
		require.NoError(t, err)
		mark, err := Fill(2, 2, 255, 255, 255, 255)
		require.NoError(t, err)

		before := target.Clone()
		Composite(target, mark, TopLeft, 50)
		assert.Equal(t, before.Pix(), target.Pix())
	})
}
