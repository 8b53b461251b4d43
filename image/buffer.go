package image

import (
	"errors"
	"fmt"
	stdimage "image"

	"golang.org/x/image/draw"
)

// Buffer errors.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrDataTooSmall is returned when provided pixels are smaller than required.
	ErrDataTooSmall = errors.New("image: data buffer too small")
)

// bytesPerPixel is fixed: buffers always hold RGBA8.
const bytesPerPixel = 4

// Size is a width and height in pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Area returns Width*Height.
func (s Size) Area() uint64 { return uint64(s.Width) * uint64(s.Height) }

// String implements fmt.Stringer.
func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Buffer holds decoded premultiplied RGBA8 pixels with a tight stride.
type Buffer struct {
	width  int
	height int
	pix    []byte
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Buffer{width: width, height: height, pix: make([]byte, width*height*bytesPerPixel)}, nil
}

// FromPixels wraps pix without copying. pix must hold at least
// width*height*4 bytes.
func FromPixels(width, height int, pix []byte) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	need := width * height * bytesPerPixel
	if len(pix) < need {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrDataTooSmall, len(pix), need)
	}
	return &Buffer{width: width, height: height, pix: pix[:need]}, nil
}

// FromStdImage converts any image.Image into a premultiplied RGBA8 buffer.
func FromStdImage(img stdimage.Image) *Buffer {
	b := img.Bounds()
	if rgba, ok := img.(*stdimage.RGBA); ok && rgba.Stride == b.Dx()*bytesPerPixel && b.Min == (stdimage.Point{}) {
		pix := make([]byte, len(rgba.Pix))
		copy(pix, rgba.Pix)
		return &Buffer{width: b.Dx(), height: b.Dy(), pix: pix}
	}
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Buffer{width: b.Dx(), height: b.Dy(), pix: dst.Pix}
}

// Width returns the width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the height in pixels.
func (b *Buffer) Height() int { return b.height }

// Dimensions returns the buffer size.
func (b *Buffer) Dimensions() Size {
	return Size{Width: uint32(b.width), Height: uint32(b.height)} //nolint:gosec // dimensions validated positive
}

// Stride returns the number of bytes per row.
func (b *Buffer) Stride() int { return b.width * bytesPerPixel }

// Pix returns the underlying pixel data. The slice is shared with the buffer.
func (b *Buffer) Pix() []byte { return b.pix }

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	pix := make([]byte, len(b.pix))
	copy(pix, b.pix)
	return &Buffer{width: b.width, height: b.height, pix: pix}
}

// ToStdImage returns an *image.RGBA sharing the buffer's pixels.
func (b *Buffer) ToStdImage() *stdimage.RGBA {
	return &stdimage.RGBA{
		Pix:    b.pix,
		Stride: b.Stride(),
		Rect:   stdimage.Rect(0, 0, b.width, b.height),
	}
}
