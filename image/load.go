package image

import (
	"bytes"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Load errors.
var (
	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("image: empty data")

	// ErrNoSource is returned for the zero Handle.
	ErrNoSource = errors.New("image: handle has no source")
)

// Load decodes the pixels behind h. It has no GPU side effects.
func Load(h Handle) (*Buffer, error) {
	switch {
	case h.rgba != nil:
		return FromPixels(h.rgba.width, h.rgba.height, h.rgba.pix)
	case h.path != "":
		f, err := os.Open(h.path)
		if err != nil {
			return nil, fmt.Errorf("image: open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return Decode(f)
	case h.data != nil:
		if len(h.data) == 0 {
			return nil, ErrEmptyData
		}
		return Decode(bytes.NewReader(h.data))
	default:
		return nil, ErrNoSource
	}
}

// Decode decodes an image from r, auto-detecting the format.
func Decode(r io.Reader) (*Buffer, error) {
	img, _, err := stdimage.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("image: decode: %w", err)
	}
	return FromStdImage(img), nil
}
