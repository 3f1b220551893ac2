package detection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Classifier scores a contour against every shape kind and keeps the best fit.
// It holds only configuration and is safe for concurrent use.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier from a copy of cfg.
func NewClassifier(cfg *Config) *Classifier {
	return &Classifier{cfg: *cfg}
}

// boundaryJitter is the standard deviation of a uniform one-pixel
// quantisation error, 1/sqrt(12).
const boundaryJitter = 0.2887

// fit is one candidate interpretation of a contour. residual is normalised so
// that 1 is the acceptance limit.
type fit struct {
	kind     ShapeKind
	residual float64
	valid    bool
	geometry Geometry
}

func (f fit) confidence() float64 {
	c := 1 - f.residual*f.residual
	return math.Max(0, math.Min(1, c))
}

// Classify labels a contour.
//
// Every candidate kind computes a residual, normalised by its tolerance so
// that values below 1 are acceptable, and a confidence of 1 - residual².
// The valid candidate with the highest confidence wins; exact ties prefer
// circle, rectangle, triangle, polygon in that order. A polygon does not win
// over a circle scoring at least CirclePreference. A contour no candidate
// accepts is Unknown with confidence 0 and its simplified outline as geometry.
//
// # Candidates
//
//   - Circle: coefficient of variation of the centroid-to-boundary distances,
//     less the pixel quantisation spread, over CircleTolerance
//   - Rectangle: exactly 4 simplified vertices, refined by fitting a line to
//     each side; the worst of corner deviation from 90° (over
//     RectAngleTolerance), opposite-side length mismatch (over
//     RectSideTolerance) and area mismatch (over AreaTolerance)
//   - Triangle: exactly 3 vertices with side ratio within MaxTriangleSideRatio;
//     area mismatch over AreaTolerance
//   - Polygon: 5 or more vertices; area mismatch over AreaTolerance
//
// Geometry coordinates are rounded to 2 decimals and confidence to 4.
func (c *Classifier) Classify(contour Contour) ShapeDetection {
	det := ShapeDetection{
		Kind:        KindUnknown,
		BoundingBox: contour.Bounds(),
	}

	pts := contour.floatPoints()
	area := math.Abs(polygonArea(pts))
	if len(pts) < 3 || area <= 0 {
		det.Geometry = PolygonGeometry{Vertices: roundPoints(pts)}
		return det
	}

	approx := approxPolygon(pts, c.epsilon(contour.Perimeter(), area))
	det.Geometry = PolygonGeometry{Vertices: roundPoints(approx)}

	circle := c.fitCircle(pts)
	best, conf, ok := pickBest([]fit{
		circle,
		c.fitRectangle(pts, approx, area),
		c.fitTriangle(approx, area),
		c.fitPolygon(approx, area),
	})
	if ok && best.kind == KindPolygon && circle.valid {
		if cc := round4(circle.confidence()); cc >= c.cfg.CirclePreference {
			best, conf = circle, cc
		}
	}
	if ok {
		det.Kind = best.kind
		det.Confidence = Confidence(conf)
		det.Geometry = best.geometry
	}
	return det
}

// epsilon is the simplification tolerance for a contour: ApproxEpsilon of the
// perimeter, capped at ApproxWidthRatio of the mean width 2A/P.
func (c *Classifier) epsilon(perimeter, area float64) float64 {
	eps := c.cfg.ApproxEpsilon * perimeter
	if perimeter > 0 {
		eps = min(eps, c.cfg.ApproxWidthRatio*2*area/perimeter)
	}
	return eps
}

// pickBest returns the valid candidate with the highest rounded confidence.
// Candidates must be listed in preference order; the earlier one wins a tie.
func pickBest(candidates []fit) (fit, float64, bool) {
	var (
		best  fit
		score = -1.0
		found bool
	)
	for _, f := range candidates {
		if !f.valid {
			continue
		}
		if conf := round4(f.confidence()); conf > score {
			best, score, found = f, conf, true
		}
	}
	return best, score, found
}

func (c *Classifier) fitCircle(pts []PointF) fit {
	center := centroid(pts)
	radii := make([]float64, len(pts))
	for i, p := range pts {
		radii[i] = distance(center, p)
	}
	mean, std := stat.MeanStdDev(radii, nil)
	if mean <= 0 {
		return fit{kind: KindCircle}
	}
	// A digitised circle scatters about a pixel-wide band whatever its size.
	residual := (math.Max(0, std-boundaryJitter) / mean) / c.cfg.CircleTolerance
	return fit{
		kind:     KindCircle,
		residual: residual,
		valid:    residual < 1,
		geometry: CircleGeometry{
			Center: roundPoint(center),
			Radius: round2(mean + 0.5),
		},
	}
}

func (c *Classifier) fitRectangle(pts, approx []PointF, area float64) fit {
	if len(approx) != 4 {
		return fit{kind: KindRectangle}
	}
	approx = refineCorners(pts, approx)

	var worstAngle float64
	for i := range approx {
		worstAngle = math.Max(worstAngle, math.Abs(cornerAngle(approx, i)-90))
	}

	sides := sideLengths(approx)
	sideDiff := math.Max(relDiff(sides[0], sides[2]), relDiff(sides[1], sides[3]))
	areaDiff := math.Abs(area-math.Abs(polygonArea(approx))) / area

	residual := math.Max(worstAngle/c.cfg.RectAngleTolerance,
		math.Max(sideDiff/c.cfg.RectSideTolerance, areaDiff/c.cfg.AreaTolerance))

	corners := rotateToTopLeft(approx)
	s := sideLengths(corners)
	a, b := (s[0]+s[2])/2, (s[1]+s[3])/2
	longFrom, longTo := corners[0], corners[1]
	if b > a {
		a, b = b, a
		longFrom, longTo = corners[1], corners[2]
	}
	angle := math.Atan2(longTo.Y-longFrom.Y, longTo.X-longFrom.X) * 180 / math.Pi
	angle = math.Mod(angle+180, 180)

	var center PointF
	for _, p := range corners {
		center.X += p.X / 4
		center.Y += p.Y / 4
	}

	return fit{
		kind:     KindRectangle,
		residual: residual,
		valid:    residual < 1,
		geometry: RectangleGeometry{
			Center:    roundPoint(center),
			Corners:   roundPoints(corners),
			Width:     round2(a),
			Height:    round2(b),
			Angle:     round2(angle),
			Elongated: b > 0 && a/b >= c.cfg.ElongatedAspect,
		},
	}
}

func (c *Classifier) fitTriangle(approx []PointF, area float64) fit {
	if len(approx) != 3 {
		return fit{kind: KindTriangle}
	}
	sides := sideLengths(approx)
	shortest, longest := sides[0], sides[0]
	base := 0
	for i, s := range sides[1:] {
		if s < shortest {
			shortest, base = s, i+1
		}
		longest = math.Max(longest, s)
	}
	if shortest <= 0 || longest/shortest > c.cfg.MaxTriangleSideRatio {
		return fit{kind: KindTriangle}
	}

	residual := math.Abs(area-math.Abs(polygonArea(approx))) / area / c.cfg.AreaTolerance

	// Side i runs from vertex i to vertex i+1; the apex is the other vertex.
	b0, b1 := approx[base], approx[(base+1)%3]
	apex := approx[(base+2)%3]
	mid := PointF{X: (b0.X + b1.X) / 2, Y: (b0.Y + b1.Y) / 2}
	heading := math.Atan2(apex.X-mid.X, mid.Y-apex.Y) * 180 / math.Pi
	if heading < 0 {
		heading += 360
	}

	return fit{
		kind:     KindTriangle,
		residual: residual,
		valid:    residual < 1,
		geometry: TriangleGeometry{
			Vertices:  roundPoints(approx),
			Angle:     round2(math.Mod(heading, 360)),
			Direction: Segment{Start: roundPoint(mid), End: roundPoint(apex)},
		},
	}
}

func (c *Classifier) fitPolygon(approx []PointF, area float64) fit {
	if len(approx) < 5 {
		return fit{kind: KindPolygon}
	}
	residual := math.Abs(area-math.Abs(polygonArea(approx))) / area / c.cfg.AreaTolerance
	return fit{
		kind:     KindPolygon,
		residual: residual,
		valid:    residual < 1,
		geometry: PolygonGeometry{Vertices: roundPoints(approx)},
	}
}

// cornerAngle returns the interior angle at vertex i in degrees.
func cornerAngle(poly []PointF, i int) float64 {
	n := len(poly)
	p, v, q := poly[(i+n-1)%n], poly[i], poly[(i+1)%n]
	ax, ay := p.X-v.X, p.Y-v.Y
	bx, by := q.X-v.X, q.Y-v.Y
	la, lb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if la == 0 || lb == 0 {
		return 0
	}
	cos := (ax*bx + ay*by) / (la * lb)
	return math.Acos(math.Max(-1, math.Min(1, cos))) * 180 / math.Pi
}

// sideLengths returns the length of side i, from vertex i to vertex i+1.
func sideLengths(poly []PointF) []float64 {
	n := len(poly)
	out := make([]float64, n)
	for i := range poly {
		out[i] = distance(poly[i], poly[(i+1)%n])
	}
	return out
}

func relDiff(a, b float64) float64 {
	m := math.Max(a, b)
	if m == 0 {
		return 0
	}
	return math.Abs(a-b) / m
}

// rotateToTopLeft reorders a ring so it starts at the vertex with the
// smallest x+y, keeping the traversal direction.
func rotateToTopLeft(poly []PointF) []PointF {
	start := 0
	for i, p := range poly {
		q := poly[start]
		if p.X+p.Y < q.X+q.Y {
			start = i
		}
	}
	out := make([]PointF, 0, len(poly))
	out = append(out, poly[start:]...)
	return append(out, poly[:start]...)
}

func roundPoints(pts []PointF) []PointF {
	out := make([]PointF, len(pts))
	for i, p := range pts {
		out[i] = roundPoint(p)
	}
	return out
}
