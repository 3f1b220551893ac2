package imaging

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ColorSample is the average colour of a set of pixels together with a
// coarse human-readable name.
type ColorSample struct {
	// Name is one of black, white, gray, red, orange, yellow, green, cyan,
	// blue, purple or magenta. Empty when no pixels were sampled.
	Name string `json:"name"`

	// Hex is the mean colour as "#rrggbb".
	Hex string `json:"hex"`
}

// SampleRegionColor averages the colour of img at the given points and names
// the result. Points outside the image are skipped.
//
// Detection uses the traced boundary of a shape as the sample set, which is
// enough to identify solid fills and outlines alike.
func SampleRegionColor(img *ImageBuffer, points []image.Point) ColorSample {
	if !img.Valid() {
		return ColorSample{}
	}

	var r, g, b float64
	n := 0
	for _, p := range points {
		if p.X < 0 || p.Y < 0 || p.X >= img.width || p.Y >= img.height {
			continue
		}
		c, ok := colorful.MakeColor(img.Pixel(p.X, p.Y))
		if !ok {
			// fully transparent
			continue
		}
		r += c.R
		g += c.G
		b += c.B
		n++
	}
	if n == 0 {
		return ColorSample{}
	}

	mean := colorful.Color{R: r / float64(n), G: g / float64(n), B: b / float64(n)}.Clamped()
	return ColorSample{
		Name: NameColor(mean),
		Hex:  mean.Hex(),
	}
}

// NameColor maps a colour onto a small fixed palette using its HSV
// coordinates. Low-value colours are black, low-saturation colours are white
// or gray, everything else is named by hue.
func NameColor(c colorful.Color) string {
	h, s, v := c.Hsv()
	switch {
	case v < 0.2:
		return "black"
	case s < 0.2:
		if v > 0.8 {
			return "white"
		}
		return "gray"
	}

	switch {
	case h < 15 || h >= 345:
		return "red"
	case h < 45:
		return "orange"
	case h < 70:
		return "yellow"
	case h < 165:
		return "green"
	case h < 195:
		return "cyan"
	case h < 255:
		return "blue"
	case h < 290:
		return "purple"
	default:
		return "magenta"
	}
}
