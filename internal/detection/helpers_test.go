package detection

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

var (
	red   = color.NRGBA{220, 20, 20, 255}
	blue  = color.NRGBA{30, 60, 200, 255}
	green = color.NRGBA{20, 160, 40, 255}
	black = color.NRGBA{0, 0, 0, 255}
	white = color.NRGBA{255, 255, 255, 255}
)

// createCanvas creates a solid color test image
func createCanvas(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fillRect fills the inclusive pixel range [x1,x2] x [y1,y2].
func fillRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.Color) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			img.Set(x, y, c)
		}
	}
}

// fillCircle fills every pixel whose centre is within radius of (cx, cy).
func fillCircle(img *image.NRGBA, cx, cy, radius int, c color.Color) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}
}

// fillPolygon fills pixels whose centre lies inside the polygon (even-odd rule).
func fillPolygon(img *image.NRGBA, poly []PointF, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if insidePolygon(poly, float64(x), float64(y)) {
				img.Set(x, y, c)
			}
		}
	}
}

func insidePolygon(poly []PointF, x, y float64) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > y) != (b.Y > y) && x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func regularPolygon(cx, cy, radius float64, sides int) []PointF {
	out := make([]PointF, sides)
	for i := range out {
		a := 2*math.Pi*float64(i)/float64(sides) - math.Pi/2
		out[i] = PointF{X: cx + radius*math.Cos(a), Y: cy + radius*math.Sin(a)}
	}
	return out
}

// rotatedRect returns the corners of a length x thickness rectangle centred
// on (cx, cy) with its long side at deg degrees.
func rotatedRect(cx, cy, length, thickness, deg float64) []PointF {
	a := deg * math.Pi / 180
	ux, uy := math.Cos(a), math.Sin(a)
	out := make([]PointF, 0, 4)
	for _, s := range [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		l, w := s[0]*length/2, s[1]*thickness/2
		out = append(out, PointF{X: cx + l*ux - w*uy, Y: cy + l*uy + w*ux})
	}
	return out
}

func toBuffer(t *testing.T, img image.Image) *imaging.ImageBuffer {
	t.Helper()
	buf, err := imaging.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	return buf
}

// newMask creates a binary gray buffer with the given pixels set to foreground.
func newMask(t *testing.T, width, height int, set func(x, y int) bool) *imaging.ImageBuffer {
	t.Helper()
	pix := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if set(x, y) {
				pix[y*width+x] = imaging.Foreground
			}
		}
	}
	buf, err := imaging.NewImageBuffer(width, height, imaging.LayoutGray, pix)
	if err != nil {
		t.Fatalf("NewImageBuffer failed: %v", err)
	}
	return buf
}

func rectMask(x1, y1, x2, y2 int) func(x, y int) bool {
	return func(x, y int) bool {
		return x >= x1 && x <= x2 && y >= y1 && y <= y2
	}
}

// singleContour extracts exactly one contour from mask.
func singleContour(t *testing.T, mask *imaging.ImageBuffer) Contour {
	t.Helper()
	contours := NewExtractor(DefaultConfig()).Extract(mask)
	if len(contours) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(contours))
	}
	return contours[0]
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
