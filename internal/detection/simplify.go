package detection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// approxPolygon simplifies a closed boundary to the vertices needed to stay
// within epsilon of it.
//
// The ring is split at the point farthest from points[0] and each half is
// reduced with Douglas–Peucker. Vertices lying within epsilon of the line
// through their neighbours are then removed one at a time (nearest first)
// while more than three remain, which drops the seam vertex left behind when
// points[0] falls in the middle of a straight side.
func approxPolygon(points []PointF, epsilon float64) []PointF {
	n := len(points)
	if n < 3 {
		return append([]PointF(nil), points...)
	}

	far, best := 0, -1.0
	for i := 1; i < n; i++ {
		if d := dist2(points[0], points[i]); d > best {
			far, best = i, d
		}
	}
	if best <= 0 {
		return []PointF{points[0]}
	}

	first := douglasPeucker(points[:far+1], epsilon)

	ring := make([]PointF, 0, n-far+1)
	ring = append(ring, points[far:]...)
	ring = append(ring, points[0])
	second := douglasPeucker(ring, epsilon)

	out := make([]PointF, 0, len(first)+len(second))
	out = append(out, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return pruneCollinear(out, epsilon)
}

// douglasPeucker simplifies an open polyline, always keeping both endpoints.
func douglasPeucker(points []PointF, epsilon float64) []PointF {
	if len(points) < 3 {
		return append([]PointF(nil), points...)
	}
	a, b := points[0], points[len(points)-1]

	idx, maxDist := 0, -1.0
	for i := 1; i < len(points)-1; i++ {
		if d := segmentDistance(points[i], a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return []PointF{a, b}
	}

	left := douglasPeucker(points[:idx+1], epsilon)
	right := douglasPeucker(points[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

func pruneCollinear(poly []PointF, epsilon float64) []PointF {
	for len(poly) > 3 {
		n := len(poly)
		idx, minDist := -1, epsilon
		for i := 0; i < n; i++ {
			prev := poly[(i+n-1)%n]
			next := poly[(i+1)%n]
			if d := lineDistance(poly[i], prev, next); d < minDist {
				idx, minDist = i, d
			}
		}
		if idx < 0 {
			break
		}
		poly = append(poly[:idx], poly[idx+1:]...)
	}
	return poly
}

// sideTrim is the fraction of each side, at either end, left out of the line
// fit in refineCorners. Corners are where blur and quantisation bite.
const sideTrim = 0.15

// refineCorners moves each vertex of a simplified polygon to the
// intersection of total-least-squares lines fitted to the boundary points of
// its two adjacent sides. Simplified vertices are always boundary points, so
// a blunted corner drags them off the true sides; the fitted lines are not
// affected. A side with fewer than two usable points keeps its chord, and a
// corner whose lines are near parallel keeps its vertex.
func refineCorners(boundary, poly []PointF) []PointF {
	n := len(poly)
	xs := make([][]float64, n)
	ys := make([][]float64, n)
	for _, p := range boundary {
		side, best := 0, math.Inf(1)
		for i := range poly {
			if d := segmentDistance(p, poly[i], poly[(i+1)%n]); d < best {
				side, best = i, d
			}
		}
		t := segmentParam(p, poly[side], poly[(side+1)%n])
		if t < sideTrim || t > 1-sideTrim {
			continue
		}
		xs[side] = append(xs[side], p.X)
		ys[side] = append(ys[side], p.Y)
	}

	lines := make([]line, n)
	for i := range poly {
		lines[i] = fitLine(xs[i], ys[i], poly[i], poly[(i+1)%n])
	}

	out := make([]PointF, n)
	for i := range poly {
		v, ok := lines[(i+n-1)%n].intersect(lines[i])
		if !ok || distance(v, poly[i]) > distance(poly[i], poly[(i+1)%n]) {
			v = poly[i]
		}
		out[i] = v
	}
	return out
}

// line is a point on the line and a unit direction.
type line struct {
	at     PointF
	dx, dy float64
}

// fitLine fits a total-least-squares line to the points, falling back to the
// chord a-b when there are fewer than two.
func fitLine(xs, ys []float64, a, b PointF) line {
	if len(xs) < 2 {
		l := distance(a, b)
		if l == 0 {
			return line{at: a, dx: 1}
		}
		return line{at: a, dx: (b.X - a.X) / l, dy: (b.Y - a.Y) / l}
	}
	vx := stat.Variance(xs, nil)
	vy := stat.Variance(ys, nil)
	cxy := stat.Covariance(xs, ys, nil)
	theta := math.Atan2(2*cxy, vx-vy) / 2
	return line{
		at: PointF{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)},
		dx: math.Cos(theta),
		dy: math.Sin(theta),
	}
}

func (l line) intersect(m line) (PointF, bool) {
	den := l.dx*m.dy - l.dy*m.dx
	if math.Abs(den) < 1e-9 {
		return PointF{}, false
	}
	t := ((m.at.X-l.at.X)*m.dy - (m.at.Y-l.at.Y)*m.dx) / den
	return PointF{X: l.at.X + t*l.dx, Y: l.at.Y + t*l.dy}, true
}

// segmentParam is the position of p's projection along ab, 0 at a and 1 at b.
func segmentParam(p, a, b PointF) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	return ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
}

// segmentDistance is the distance from p to the segment ab.
func segmentDistance(p, a, b PointF) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Sqrt(dist2(p, a))
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Sqrt(dist2(p, PointF{X: a.X + t*dx, Y: a.Y + t*dy}))
}

// lineDistance is the distance from p to the infinite line through a and b.
func lineDistance(p, a, b PointF) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return math.Sqrt(dist2(p, a))
	}
	return math.Abs(dy*(p.X-a.X)-dx*(p.Y-a.Y)) / l
}

func dist2(a, b PointF) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func distance(a, b PointF) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// polygonArea returns the signed shoelace area. It is positive for polygons
// traced clockwise on screen.
func polygonArea(poly []PointF) float64 {
	n := len(poly)
	if n < 3 {
		return 0
	}
	var s float64
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		s += a.X*b.Y - b.X*a.Y
	}
	return s / 2
}

// centroid returns the area centroid of the polygon, or the vertex mean when
// the polygon is degenerate.
func centroid(poly []PointF) PointF {
	area := polygonArea(poly)
	n := len(poly)
	if math.Abs(area) < 1e-9 {
		var c PointF
		for _, p := range poly {
			c.X += p.X
			c.Y += p.Y
		}
		if n > 0 {
			c.X /= float64(n)
			c.Y /= float64(n)
		}
		return c
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		cross := a.X*b.Y - b.X*a.Y
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}
	return PointF{X: cx / (6 * area), Y: cy / (6 * area)}
}
