package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ErrInvalidImage is returned for buffers with zero or negative dimensions,
// an unsupported channel layout, or pixel data of the wrong length.
var ErrInvalidImage = errors.New("invalid image")

// Layout describes how pixels are stored in an ImageBuffer.
type Layout int

const (
	// LayoutGray stores one intensity byte per pixel.
	LayoutGray Layout = 1
	// LayoutRGB stores R, G, B bytes per pixel.
	LayoutRGB Layout = 3
	// LayoutRGBA stores R, G, B, A bytes per pixel (non-premultiplied).
	LayoutRGBA Layout = 4
)

// Channels returns the number of bytes per pixel, or 0 for an unknown layout.
func (l Layout) Channels() int {
	switch l {
	case LayoutGray, LayoutRGB, LayoutRGBA:
		return int(l)
	}
	return 0
}

func (l Layout) String() string {
	switch l {
	case LayoutGray:
		return "gray"
	case LayoutRGB:
		return "rgb"
	case LayoutRGBA:
		return "rgba"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// ImageBuffer owns a decoded pixel matrix.
//
// Pixel rows are stored top to bottom with no padding, so
// len(pix) == width*height*channels always holds. A buffer is never modified
// after construction: operations that produce a different image (binarization,
// annotation) return a new buffer.
//
// The zero value is an empty buffer that every consumer rejects with
// ErrInvalidImage.
type ImageBuffer struct {
	width  int
	height int
	layout Layout
	pix    []uint8
}

// NewImageBuffer creates a buffer from raw pixel bytes. The bytes are copied,
// so the caller may reuse pix afterwards.
func NewImageBuffer(width, height int, layout Layout, pix []uint8) (*ImageBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, width, height)
	}
	ch := layout.Channels()
	if ch == 0 {
		return nil, fmt.Errorf("%w: unsupported layout %v", ErrInvalidImage, layout)
	}
	if len(pix) != width*height*ch {
		return nil, fmt.Errorf("%w: pixel data is %d bytes, want %d", ErrInvalidImage, len(pix), width*height*ch)
	}
	own := make([]uint8, len(pix))
	copy(own, pix)
	return &ImageBuffer{width: width, height: height, layout: layout, pix: own}, nil
}

// FromImage converts any image.Image into a buffer. Gray images keep a single
// channel; everything else is stored as non-premultiplied RGBA. The bounds
// origin is moved to (0,0).
func FromImage(img image.Image) (*ImageBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, width, height)
	}

	if g, ok := img.(*image.Gray); ok {
		pix := make([]uint8, width*height)
		for y := 0; y < height; y++ {
			off := g.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(pix[y*width:(y+1)*width], g.Pix[off:off+width])
		}
		return &ImageBuffer{width: width, height: height, layout: LayoutGray, pix: pix}, nil
	}

	// imaging.Clone always returns a fresh NRGBA anchored at (0,0).
	nrgba := imaging.Clone(img)
	pix := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		copy(pix[y*width*4:(y+1)*width*4], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+width*4])
	}
	return &ImageBuffer{width: width, height: height, layout: LayoutRGBA, pix: pix}, nil
}

// Width returns the image width in pixels.
func (b *ImageBuffer) Width() int { return b.width }

// Height returns the image height in pixels.
func (b *ImageBuffer) Height() int { return b.height }

// Layout returns the channel layout.
func (b *ImageBuffer) Layout() Layout { return b.layout }

// Channels returns the number of bytes per pixel.
func (b *ImageBuffer) Channels() int { return b.layout.Channels() }

// Valid reports whether the buffer satisfies its size invariant.
func (b *ImageBuffer) Valid() bool {
	if b == nil || b.width <= 0 || b.height <= 0 {
		return false
	}
	ch := b.layout.Channels()
	return ch > 0 && len(b.pix) == b.width*b.height*ch
}

// Bytes returns a copy of the raw pixel data.
func (b *ImageBuffer) Bytes() []uint8 {
	out := make([]uint8, len(b.pix))
	copy(out, b.pix)
	return out
}

// Gray returns the intensity at (x, y). For colour layouts this is the
// ITU-R BT.601 luminance. No bounds checking is performed.
func (b *ImageBuffer) Gray(x, y int) uint8 {
	i := (y*b.width + x) * b.layout.Channels()
	if b.layout == LayoutGray {
		return b.pix[i]
	}
	return uint8(float64(b.pix[i])*0.299 + float64(b.pix[i+1])*0.587 + float64(b.pix[i+2])*0.114)
}

// Pixel returns the colour at (x, y). No bounds checking is performed.
func (b *ImageBuffer) Pixel(x, y int) color.RGBA {
	i := (y*b.width + x) * b.layout.Channels()
	switch b.layout {
	case LayoutGray:
		v := b.pix[i]
		return color.RGBA{v, v, v, 255}
	case LayoutRGB:
		return color.RGBA{b.pix[i], b.pix[i+1], b.pix[i+2], 255}
	default:
		// Stored non-premultiplied; color.RGBA is premultiplied.
		c := color.NRGBA{b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3]}
		return color.RGBAModel.Convert(c).(color.RGBA)
	}
}

// ToImage returns a fresh image.Image holding a copy of the pixels:
// *image.Gray for gray buffers, *image.NRGBA otherwise.
func (b *ImageBuffer) ToImage() image.Image {
	rect := image.Rect(0, 0, b.width, b.height)
	switch b.layout {
	case LayoutGray:
		g := image.NewGray(rect)
		copy(g.Pix, b.pix)
		return g
	case LayoutRGB:
		n := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(b.pix); i, j = i+3, j+4 {
			n.Pix[j] = b.pix[i]
			n.Pix[j+1] = b.pix[i+1]
			n.Pix[j+2] = b.pix[i+2]
			n.Pix[j+3] = 255
		}
		return n
	default:
		n := image.NewNRGBA(rect)
		copy(n.Pix, b.pix)
		return n
	}
}

// SameSize reports whether the buffer is exactly width x height pixels.
func (b *ImageBuffer) SameSize(width, height int) bool {
	return b.width == width && b.height == height
}
