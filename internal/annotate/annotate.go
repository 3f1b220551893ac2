// Package annotate draws detection results onto images.
package annotate

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/shape-tools-mcp/internal/detection"
	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

// ErrDimensionMismatch is returned when a result was produced from an image
// of a different size than the one being annotated.
var ErrDimensionMismatch = errors.New("result dimensions do not match image")

// Style holds the drawing parameters.
type Style struct {
	// LineWidth is the outline width in pixels.
	LineWidth float64

	// Palette maps each shape kind to its outline colour.
	Palette map[detection.ShapeKind]color.Color

	// LabelBackground is drawn behind each label for legibility.
	LabelBackground color.Color

	// LabelColor is the label text colour.
	LabelColor color.Color
}

// DefaultStyle returns the built-in palette: green circles, blue rectangles,
// orange triangles, purple polygons and gray unknowns.
func DefaultStyle() Style {
	return Style{
		LineWidth: 2,
		Palette: map[detection.ShapeKind]color.Color{
			detection.KindCircle:    colorful.Hsv(140, 0.85, 0.8),
			detection.KindRectangle: colorful.Hsv(215, 0.85, 0.9),
			detection.KindTriangle:  colorful.Hsv(30, 0.9, 0.95),
			detection.KindPolygon:   colorful.Hsv(285, 0.7, 0.85),
			detection.KindUnknown:   colorful.Hsv(0, 0, 0.55),
		},
		LabelBackground: color.NRGBA{0, 0, 0, 170},
		LabelColor:      color.White,
	}
}

// Annotator renders detections. It holds only its style and is safe for
// concurrent use.
type Annotator struct {
	style Style
}

// New creates an annotator with the given style.
func New(style Style) *Annotator {
	return &Annotator{style: style}
}

// Draw returns a copy of img with every detection outlined and labelled.
// img itself is never modified.
//
// Outlines are drawn first and labels second, each in detection order, so a
// label is never covered by a later outline:
//   - Circle: solid circle with a centre dot
//   - Rectangle: solid quadrilateral through the fitted corners
//   - Triangle: solid triangle plus its direction line, base to apex
//   - Polygon: dashed polygon
//   - Unknown: dashed bounding box
//
// Labels read "<kind> <confidence>" and sit above the bounding box, or below
// it when there is no room above.
//
// Returns an error wrapping imaging.ErrInvalidImage for an empty buffer, and
// ErrDimensionMismatch when result was computed for a different image size.
// The output always has the input's dimensions and is RGBA.
func (a *Annotator) Draw(img *imaging.ImageBuffer, result *detection.DetectionResult) (*imaging.ImageBuffer, error) {
	if !img.Valid() {
		return nil, fmt.Errorf("%w: cannot annotate empty buffer", imaging.ErrInvalidImage)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: no result", ErrDimensionMismatch)
	}
	if !img.SameSize(result.Width, result.Height) {
		return nil, fmt.Errorf("%w: result is %dx%d, image is %dx%d",
			ErrDimensionMismatch, result.Width, result.Height, img.Width(), img.Height())
	}

	dc := gg.NewContextForImage(img.ToImage())

	for _, d := range result.Detections {
		a.drawOutline(dc, d)
	}
	for _, d := range result.Detections {
		a.drawLabel(dc, d)
	}

	return imaging.FromImage(dc.Image())
}

func (a *Annotator) colorFor(kind detection.ShapeKind) color.Color {
	if c, ok := a.style.Palette[kind]; ok {
		return c
	}
	return color.White
}

// px converts a pixel-centre coordinate to gg's continuous space.
func px(p detection.PointF) (float64, float64) {
	return p.X + 0.5, p.Y + 0.5
}

func (a *Annotator) drawOutline(dc *gg.Context, d detection.ShapeDetection) {
	dc.SetColor(a.colorFor(d.Kind))
	dc.SetLineWidth(a.style.LineWidth)
	dc.SetDash()

	switch g := d.Geometry.(type) {
	case detection.CircleGeometry:
		x, y := px(g.Center)
		dc.DrawCircle(x, y, g.Radius)
		dc.Stroke()
		dc.DrawCircle(x, y, a.style.LineWidth+1)
		dc.Fill()

	case detection.RectangleGeometry:
		tracePolygon(dc, g.Corners)
		dc.Stroke()

	case detection.TriangleGeometry:
		tracePolygon(dc, g.Vertices)
		dc.Stroke()
		dc.SetLineWidth(1)
		dc.MoveTo(px(g.Direction.Start))
		dc.LineTo(px(g.Direction.End))
		dc.Stroke()

	case detection.PolygonGeometry:
		if d.Kind == detection.KindUnknown || len(g.Vertices) < 3 {
			a.drawBox(dc, d.BoundingBox)
			return
		}
		dc.SetDash(6, 4)
		tracePolygon(dc, g.Vertices)
		dc.Stroke()

	default:
		a.drawBox(dc, d.BoundingBox)
	}
}

func (a *Annotator) drawBox(dc *gg.Context, b detection.Box) {
	dc.SetDash(4, 3)
	dc.DrawRectangle(float64(b.X), float64(b.Y), float64(b.Width), float64(b.Height))
	dc.Stroke()
}

func tracePolygon(dc *gg.Context, pts []detection.PointF) {
	if len(pts) == 0 {
		return
	}
	dc.MoveTo(px(pts[0]))
	for _, p := range pts[1:] {
		dc.LineTo(px(p))
	}
	dc.ClosePath()
}

func (a *Annotator) drawLabel(dc *gg.Context, d detection.ShapeDetection) {
	text := fmt.Sprintf("%s %.2f", d.Kind, float64(d.Confidence))
	w, h := dc.MeasureString(text)
	const pad = 2.0

	x := float64(d.BoundingBox.X)
	baseline := float64(d.BoundingBox.Y) - pad*2
	if baseline-h-pad < 0 {
		baseline = float64(d.BoundingBox.Y+d.BoundingBox.Height) + h + pad*2
	}
	maxX := float64(dc.Width()) - w - pad
	maxY := float64(dc.Height()) - pad
	x = max(pad, min(x, maxX))
	baseline = max(h+pad, min(baseline, maxY))

	dc.SetDash()
	dc.SetColor(a.style.LabelBackground)
	dc.DrawRectangle(x-pad, baseline-h-pad, w+2*pad, h+2*pad)
	dc.Fill()

	dc.SetColor(a.style.LabelColor)
	dc.DrawString(text, x, baseline)
}
