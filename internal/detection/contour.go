package detection

import (
	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

// Extractor finds the outer boundary of every connected foreground region in
// a binary mask. It is stateless apart from its thresholds and safe for
// concurrent use.
type Extractor struct {
	minPerimeter float64
	minArea      float64
}

// NewExtractor creates an extractor using the noise thresholds of cfg.
func NewExtractor(cfg *Config) *Extractor {
	return &Extractor{
		minPerimeter: cfg.MinPerimeter,
		minArea:      cfg.MinArea,
	}
}

// moore lists the 8 neighbour offsets clockwise on screen (Y grows down),
// starting east.
var moore = [8]Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
}

const dirWest = 4

// Extract returns one contour per 8-connected foreground region of mask, in
// the raster order of each region's top-left-most pixel.
//
// Pixels with intensity >= 128 are foreground, so both Prepare output and
// ordinary gray images are accepted. Holes are not traced: a ring yields a
// single contour for its outer edge.
//
// # Algorithm
//
//  1. Raster scan for an unvisited foreground pixel
//  2. Moore-neighbour tracing of the region's outer boundary, stopping when
//     the start pixel is re-entered heading to the first boundary step
//  3. Flood fill marks the region visited and counts its pixels
//  4. Contours shorter than the minimum perimeter or enclosing less than the
//     minimum area are discarded
//
// Returns nil for an invalid buffer.
func (e *Extractor) Extract(mask *imaging.ImageBuffer) []Contour {
	if !mask.Valid() {
		return nil
	}
	width, height := mask.Width(), mask.Height()

	fg := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fg[y*width+x] = mask.Gray(x, y) >= 128
		}
	}
	visited := make([]bool, width*height)

	var contours []Contour
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !fg[i] || visited[i] {
				continue
			}
			c := Contour{
				Points:     traceBoundary(fg, width, height, Point{X: x, Y: y}),
				PixelCount: floodFill(fg, visited, x, y, width, height),
			}
			if c.Perimeter() < e.minPerimeter || c.Area() < e.minArea {
				continue
			}
			contours = append(contours, c)
		}
	}
	return contours
}

// traceBoundary walks the outer boundary of the region containing start.
// start must be the first pixel of its region in raster order, so its west
// neighbour is background.
func traceBoundary(fg []bool, width, height int, start Point) []Point {
	isFg := func(p Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height && fg[p.Y*width+p.X]
	}

	boundary := []Point{start}
	cur, back := start, dirWest
	var first Point
	// Each boundary pixel is entered at most once from each side.
	limit := 4*width*height + 8

	for step := 0; step < limit; step++ {
		next, nextBack, ok := mooreStep(isFg, cur, back)
		if !ok {
			// isolated pixel
			break
		}
		if step == 0 {
			first = next
		} else if cur == start && next == first {
			break
		}
		boundary = append(boundary, next)
		cur, back = next, nextBack
	}

	if n := len(boundary); n > 1 && boundary[n-1] == start {
		boundary = boundary[:n-1]
	}
	return boundary
}

// mooreStep searches the neighbours of cur clockwise, beginning after the
// backtrack direction, and returns the first foreground pixel found along with
// the direction from it back to the last background pixel examined.
func mooreStep(isFg func(Point) bool, cur Point, back int) (Point, int, bool) {
	for i := 1; i <= 8; i++ {
		d := (back + i) % 8
		n := Point{X: cur.X + moore[d].X, Y: cur.Y + moore[d].Y}
		if !isFg(n) {
			continue
		}
		prev := (d + 7) % 8
		q := Point{X: cur.X + moore[prev].X, Y: cur.Y + moore[prev].Y}
		return n, direction(q.X-n.X, q.Y-n.Y), true
	}
	return cur, back, false
}

func direction(dx, dy int) int {
	for i, m := range moore {
		if m.X == dx && m.Y == dy {
			return i
		}
	}
	return dirWest
}

// floodFill marks the 8-connected region containing (startX, startY) as
// visited and returns its pixel count.
//
// Uses an explicit stack rather than recursion so large regions cannot
// overflow the goroutine stack.
func floodFill(fg, visited []bool, startX, startY, width, height int) int {
	stack := []Point{{X: startX, Y: startY}}
	count := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		i := p.Y*width + p.X
		if visited[i] || !fg[i] {
			continue
		}

		visited[i] = true
		count++

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return count
}
