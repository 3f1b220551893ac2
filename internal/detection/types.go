package detection

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strconv"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// PointF is a sub-pixel coordinate. Integer values are pixel centres.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned bounding box. X and Y are the top-left pixel;
// Width and Height count pixels, so the box covers X..X+Width-1.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns Width × Height.
func (b Box) Area() int {
	return b.Width * b.Height
}

// Intersection returns the number of pixels covered by both boxes.
func (b Box) Intersection(o Box) int {
	x1 := max(b.X, o.X)
	y1 := max(b.Y, o.Y)
	x2 := min(b.X+b.Width, o.X+o.Width)
	y2 := min(b.Y+b.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

// OverlapRatio returns the intersection area divided by the smaller box area.
// A box nested inside another has a ratio of 1.
func (b Box) OverlapRatio(o Box) float64 {
	smaller := min(b.Area(), o.Area())
	if smaller <= 0 {
		return 0
	}
	return float64(b.Intersection(o)) / float64(smaller)
}

// Contour is the closed outer boundary of one connected foreground region.
// The first point is not repeated at the end.
type Contour struct {
	// Points are the boundary pixels in tracing order (clockwise on screen).
	Points []Point

	// PixelCount is the number of pixels in the connected region.
	PixelCount int
}

// Perimeter returns the length of the closed boundary polyline.
func (c Contour) Perimeter() float64 {
	n := len(c.Points)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a := c.Points[i]
		b := c.Points[(i+1)%n]
		sum += math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	}
	return sum
}

// Area returns the absolute area enclosed by the boundary polyline.
func (c Contour) Area() float64 {
	return math.Abs(polygonArea(c.floatPoints()))
}

// Bounds returns the inclusive pixel extent of the contour.
func (c Contour) Bounds() Box {
	if len(c.Points) == 0 {
		return Box{}
	}
	minX, minY := c.Points[0].X, c.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range c.Points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Box{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

func (c Contour) floatPoints() []PointF {
	out := make([]PointF, len(c.Points))
	for i, p := range c.Points {
		out[i] = PointF{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

func (c Contour) imagePoints() []image.Point {
	out := make([]image.Point, len(c.Points))
	for i, p := range c.Points {
		out[i] = image.Point{X: p.X, Y: p.Y}
	}
	return out
}

// ShapeKind classifies a detection.
type ShapeKind int

const (
	KindUnknown ShapeKind = iota
	KindCircle
	KindRectangle
	KindTriangle
	KindPolygon
)

var kindTokens = map[ShapeKind]string{
	KindUnknown:   "unknown",
	KindCircle:    "circle",
	KindRectangle: "rectangle",
	KindTriangle:  "triangle",
	KindPolygon:   "polygon",
}

func (k ShapeKind) String() string {
	if s, ok := kindTokens[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseShapeKind converts a payload token back into a ShapeKind.
func ParseShapeKind(s string) (ShapeKind, error) {
	for k, tok := range kindTokens {
		if tok == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown shape kind %q", s)
}

func (k ShapeKind) MarshalText() ([]byte, error) {
	if _, ok := kindTokens[k]; !ok {
		return nil, fmt.Errorf("invalid shape kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *ShapeKind) UnmarshalText(text []byte) error {
	v, err := ParseShapeKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Confidence is a fit score in [0,1]. It always serializes with four decimals.
type Confidence float64

// ConfidenceDecimals is the fixed precision of confidence values.
const ConfidenceDecimals = 4

func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(c), 'f', ConfidenceDecimals, 64)), nil
}

// Geometry holds the kind-specific parameters of a detection. The concrete
// types are CircleGeometry, RectangleGeometry, TriangleGeometry and
// PolygonGeometry.
type Geometry interface {
	isGeometry()
}

// CircleGeometry describes a fitted circle.
type CircleGeometry struct {
	Center PointF  `json:"center"`
	Radius float64 `json:"radius"` // to the outer edge of the boundary pixels
}

// RectangleGeometry describes a fitted (possibly rotated) rectangle.
type RectangleGeometry struct {
	Center  PointF   `json:"center"`
	Corners []PointF `json:"corners"` // clockwise, starting nearest the top-left

	// Width is the mean length of the longer side pair, Height the shorter.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Angle is the direction of the longer sides in degrees, [0, 180),
	// measured clockwise from the positive X axis.
	Angle float64 `json:"angle"`

	// Elongated is set when Width/Height reaches the configured aspect.
	Elongated bool `json:"elongated"`
}

// Segment is a directed line segment.
type Segment struct {
	Start PointF `json:"start"`
	End   PointF `json:"end"`
}

// TriangleGeometry describes a fitted triangle.
type TriangleGeometry struct {
	Vertices []PointF `json:"vertices"`

	// Angle is the heading of Direction in degrees, [0, 360), measured
	// clockwise from straight up. An upright triangle has Angle 0.
	Angle float64 `json:"angle"`

	// Direction runs from the midpoint of the base to the apex. The base is
	// the shortest side; ties go to the earlier side.
	Direction Segment `json:"direction"`
}

// PolygonGeometry is the simplified outline of a polygon or unknown shape.
type PolygonGeometry struct {
	Vertices []PointF `json:"vertices"`
}

func (CircleGeometry) isGeometry()    {}
func (RectangleGeometry) isGeometry() {}
func (TriangleGeometry) isGeometry()  {}
func (PolygonGeometry) isGeometry()   {}

// ShapeDetection is one classified shape.
type ShapeDetection struct {
	// ID is the 1-based position of the detection in its result.
	ID int `json:"id"`

	Kind       ShapeKind  `json:"kind"`
	Confidence Confidence `json:"confidence"`
	Geometry   Geometry   `json:"geometry"`

	// BoundingBox is the pixel extent of the traced boundary.
	BoundingBox Box `json:"boundingBox"`

	// Color names the mean colour of the shape boundary in the source image.
	Color    string `json:"color"`
	ColorHex string `json:"colorHex"`
}

// UnmarshalJSON decodes the geometry according to the kind.
func (d *ShapeDetection) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID          int             `json:"id"`
		Kind        ShapeKind       `json:"kind"`
		Confidence  Confidence      `json:"confidence"`
		Geometry    json.RawMessage `json:"geometry"`
		BoundingBox Box             `json:"boundingBox"`
		Color       string          `json:"color"`
		ColorHex    string          `json:"colorHex"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var (
		geom Geometry
		err  error
	)
	switch aux.Kind {
	case KindCircle:
		var g CircleGeometry
		err = json.Unmarshal(aux.Geometry, &g)
		geom = g
	case KindRectangle:
		var g RectangleGeometry
		err = json.Unmarshal(aux.Geometry, &g)
		geom = g
	case KindTriangle:
		var g TriangleGeometry
		err = json.Unmarshal(aux.Geometry, &g)
		geom = g
	default:
		var g PolygonGeometry
		err = json.Unmarshal(aux.Geometry, &g)
		geom = g
	}
	if err != nil {
		return fmt.Errorf("%v geometry: %w", aux.Kind, err)
	}

	*d = ShapeDetection{
		ID:          aux.ID,
		Kind:        aux.Kind,
		Confidence:  aux.Confidence,
		Geometry:    geom,
		BoundingBox: aux.BoundingBox,
		Color:       aux.Color,
		ColorHex:    aux.ColorHex,
	}
	return nil
}

// DetectionResult is the outcome of one pipeline run.
type DetectionResult struct {
	// Width and Height are the dimensions of the analysed image.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Count is len(Detections).
	Count int `json:"count"`

	// Detections are in discovery order (raster order of each region's
	// first boundary pixel).
	Detections []ShapeDetection `json:"detections"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func roundPoint(p PointF) PointF {
	return PointF{X: round2(p.X), Y: round2(p.Y)}
}
