package raster

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

var (
	ErrInvalidBufferSize = errors.New("invalid buffer size")
	ErrOutOfBounds       = errors.New("pixel out of bounds")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrInvalidOpacity    = errors.New("invalid opacity")
)

// Buffer is a straight (non-premultiplied) RGBA raster with a stride of width*4.
// Channel order is R, G, B, A.
type Buffer struct {
	width  int
	height int
	pix    []uint8
}

// New wraps pix as a width x height buffer. The slice is not copied.
func New(width, height int, pix []uint8) (*Buffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: have %d bytes, want %d for %dx%d",
			ErrInvalidBufferSize, len(pix), width*height*4, width, height)
	}
	return &Buffer{width: width, height: height, pix: pix}, nil
}

// NewBlank allocates a zeroed (transparent black) buffer.
func NewBlank(width, height int) (*Buffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Buffer{width: width, height: height, pix: make([]uint8, width*height*4)}, nil
}

// Fill returns a buffer where every pixel has the given colour.
func Fill(width, height int, r, g, b, a uint8) (*Buffer, error) {
	buf, err := NewBlank(width, height)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(buf.pix); i += 4 {
		buf.pix[i], buf.pix[i+1], buf.pix[i+2], buf.pix[i+3] = r, g, b, a
	}
	return buf, nil
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Pix exposes the underlying bytes; callers that write to it own the consequences.
func (b *Buffer) Pix() []uint8 { return b.pix }

func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

func (b *Buffer) offset(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, b.width, b.height)
	}
	return (y*b.width + x) * 4, nil
}

func (b *Buffer) Get(x, y int) (r, g, bl, a uint8, err error) {
	i, err := b.offset(x, y)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3], nil
}

func (b *Buffer) Set(x, y int, r, g, bl, a uint8) error {
	i, err := b.offset(x, y)
	if err != nil {
		return err
	}
	b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3] = r, g, bl, a
	return nil
}

func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.pix))
	copy(pix, b.pix)
	return &Buffer{width: b.width, height: b.height, pix: pix}
}

// FromImage copies any image.Image into a new buffer anchored at the origin.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, bounds.Dx(), bounds.Dy())
	}
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	return &Buffer{width: bounds.Dx(), height: bounds.Dy(), pix: nrgba.Pix}, nil
}

// ToNRGBA returns an image view sharing the buffer's bytes.
func (b *Buffer) ToNRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.pix,
		Stride: b.width * 4,
		Rect:   b.Bounds(),
	}
}
