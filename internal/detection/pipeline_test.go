package detection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

func runPipeline(t *testing.T, cfg *Config, buf *imaging.ImageBuffer) *DetectionResult {
	t.Helper()
	result, err := NewPipeline(cfg).Run(buf)
	require.NoError(t, err)
	return result
}

// sceneImage has a red circle, a blue rectangle and a green triangle on white,
// discovered in that order.
func sceneImage() *imaging.ImageBuffer {
	img := createCanvas(200, 200, white)
	fillCircle(img, 40, 40, 25, red)
	fillRect(img, 110, 20, 169, 59, blue)
	fillPolygon(img, []PointF{{X: 100, Y: 110}, {X: 140, Y: 180}, {X: 60, Y: 180}}, green)
	buf, _ := imaging.FromImage(img)
	return buf
}

func TestPipelineBlankImage(t *testing.T) {
	buf := toBuffer(t, createCanvas(64, 48, white))

	result := runPipeline(t, DefaultConfig(), buf)

	assert.Equal(t, 64, result.Width)
	assert.Equal(t, 48, result.Height)
	assert.Equal(t, 0, result.Count)
	assert.NotNil(t, result.Detections)
	assert.Empty(t, result.Detections)
}

func TestPipelineInvalidImage(t *testing.T) {
	_, err := NewPipeline(DefaultConfig()).Run(&imaging.ImageBuffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrInvalidImage), "got %v", err)

	_, err = NewPipeline(DefaultConfig()).Run(nil)
	assert.True(t, errors.Is(err, imaging.ErrInvalidImage), "got %v", err)
}

func TestPipelineScene(t *testing.T) {
	result := runPipeline(t, DefaultConfig(), sceneImage())

	require.Equal(t, 3, result.Count)
	require.Len(t, result.Detections, 3)

	want := []struct {
		kind  ShapeKind
		color string
	}{
		{KindCircle, "red"},
		{KindRectangle, "blue"},
		{KindTriangle, "green"},
	}
	for i, w := range want {
		d := result.Detections[i]
		assert.Equal(t, i+1, d.ID)
		assert.Equal(t, w.kind, d.Kind, "detection %d", i)
		assert.Equal(t, w.color, d.Color, "detection %d", i)
		assert.Regexp(t, `^#[0-9a-f]{6}$`, d.ColorHex)
		assert.GreaterOrEqual(t, float64(d.Confidence), 0.8, "detection %d", i)
	}

	rect := result.Detections[1]
	assert.InDelta(t, 110, rect.BoundingBox.X, 1)
	assert.InDelta(t, 20, rect.BoundingBox.Y, 1)
	assert.InDelta(t, 60, rect.BoundingBox.Width, 2)
	assert.InDelta(t, 40, rect.BoundingBox.Height, 2)
}

func TestPipelineLightOnDark(t *testing.T) {
	img := createCanvas(100, 80, black)
	fillRect(img, 20, 20, 79, 59, white)

	result := runPipeline(t, DefaultConfig(), toBuffer(t, img))

	require.Equal(t, 1, result.Count)
	assert.Equal(t, KindRectangle, result.Detections[0].Kind)
	assert.Equal(t, "white", result.Detections[0].Color)
}

func TestPipelineNestedShapesSuppressed(t *testing.T) {
	// Rectangular frame with a solid rectangle inside it.
	img := createCanvas(100, 100, white)
	fillRect(img, 10, 10, 89, 89, black)
	fillRect(img, 14, 14, 85, 85, white)
	fillRect(img, 24, 24, 75, 75, black)

	cfg := DefaultConfig()
	withoutSuppression := *cfg
	withoutSuppression.OverlapThreshold = 1

	all := runPipeline(t, &withoutSuppression, toBuffer(t, img))
	require.Equal(t, 2, all.Count, "frame and inner rectangle are both traced")

	result := runPipeline(t, cfg, toBuffer(t, img))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, 1, result.Detections[0].ID)
}

func TestPipelineMinConfidence(t *testing.T) {
	// blur blunts the corners, so the triangle scores well below 1
	img := createCanvas(120, 100, white)
	fillPolygon(img, []PointF{{X: 60, Y: 10}, {X: 100, Y: 80}, {X: 20, Y: 80}}, black)

	result := runPipeline(t, DefaultConfig(), toBuffer(t, img))
	require.Equal(t, 1, result.Count)
	require.Less(t, float64(result.Detections[0].Confidence), 0.99)

	cfg := DefaultConfig()
	cfg.MinConfidence = 0.99

	result = runPipeline(t, cfg, toBuffer(t, img))
	assert.Equal(t, 0, result.Count)
}

func TestPipelineCircleRadiusSweep(t *testing.T) {
	for r := 6; r <= 30; r++ {
		t.Run(fmt.Sprintf("r=%d", r), func(t *testing.T) {
			size := 2*r + 21
			c := size / 2
			img := createCanvas(size, size, white)
			fillCircle(img, c, c, r, black)

			result := runPipeline(t, DefaultConfig(), toBuffer(t, img))

			require.Equal(t, 1, result.Count)
			d := result.Detections[0]
			require.Equal(t, KindCircle, d.Kind)
			assert.GreaterOrEqual(t, float64(d.Confidence), 0.9)

			// blur may move each edge by a pixel
			b := d.BoundingBox
			assert.InDelta(t, c-r, b.X, 1)
			assert.InDelta(t, c-r, b.Y, 1)
			assert.InDelta(t, c+r, b.X+b.Width-1, 1)
			assert.InDelta(t, c+r, b.Y+b.Height-1, 1)

			g := d.Geometry.(CircleGeometry)
			assert.InDelta(t, float64(r), g.Radius, 1.5)
		})
	}
}

func TestPipelineBarSweep(t *testing.T) {
	tests := []struct {
		length, thickness int
	}{
		{100, 4},
		{100, 6},
		{120, 8},
		{200, 8},
		{200, 10},
		{300, 12},
		{60, 40},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.length, tt.thickness), func(t *testing.T) {
			img := createCanvas(tt.length+20, tt.thickness+20, white)
			fillRect(img, 10, 10, 10+tt.length-1, 10+tt.thickness-1, black)

			result := runPipeline(t, DefaultConfig(), toBuffer(t, img))

			require.Equal(t, 1, result.Count)
			d := result.Detections[0]
			require.Equal(t, KindRectangle, d.Kind)
			assert.GreaterOrEqual(t, float64(d.Confidence), 0.9)

			b := d.BoundingBox
			assert.InDelta(t, 10, b.X, 1)
			assert.InDelta(t, 10, b.Y, 1)
			assert.InDelta(t, tt.length, b.Width, 2)
			assert.InDelta(t, tt.thickness, b.Height, 2)

			g := d.Geometry.(RectangleGeometry)
			assert.InDelta(t, 0, g.Angle, 1)
			assert.Equal(t, tt.length >= 2*tt.thickness, g.Elongated)
		})
	}
}

func TestPipelineDeterministic(t *testing.T) {
	buf := sceneImage()
	p := NewPipeline(DefaultConfig())

	first, err := p.Run(buf)
	require.NoError(t, err)
	second, err := p.Run(buf)
	require.NoError(t, err)

	a, err := ToText(first)
	require.NoError(t, err)
	b, err := ToText(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPipelineDoesNotModifyInput(t *testing.T) {
	buf := sceneImage()
	before := buf.Bytes()

	runPipeline(t, DefaultConfig(), buf)

	assert.Equal(t, before, buf.Bytes())
}

func TestSuppressOverlaps(t *testing.T) {
	dets := []ShapeDetection{
		{Kind: KindRectangle, Confidence: 0.7, BoundingBox: Box{X: 0, Y: 0, Width: 100, Height: 100}},
		{Kind: KindCircle, Confidence: 0.9, BoundingBox: Box{X: 10, Y: 10, Width: 50, Height: 50}},
		{Kind: KindTriangle, Confidence: 0.8, BoundingBox: Box{X: 200, Y: 0, Width: 30, Height: 30}},
	}

	got := suppressOverlaps(dets, 0.85)

	require.Len(t, got, 2)
	// discovery order is kept
	assert.Equal(t, KindCircle, got[0].Kind)
	assert.Equal(t, KindTriangle, got[1].Kind)
}

func TestSuppressOverlapsTieKeepsEarlier(t *testing.T) {
	dets := []ShapeDetection{
		{Kind: KindRectangle, Confidence: 0.9, BoundingBox: Box{X: 0, Y: 0, Width: 40, Height: 40}},
		{Kind: KindPolygon, Confidence: 0.9, BoundingBox: Box{X: 1, Y: 1, Width: 40, Height: 40}},
	}

	got := suppressOverlaps(dets, 0.85)

	require.Len(t, got, 1)
	assert.Equal(t, KindRectangle, got[0].Kind)
}

func TestSuppressOverlapsEmpty(t *testing.T) {
	got := suppressOverlaps(nil, 0.85)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBoxOverlapRatio(t *testing.T) {
	outer := Box{X: 0, Y: 0, Width: 10, Height: 10}
	inner := Box{X: 2, Y: 2, Width: 4, Height: 4}
	apart := Box{X: 20, Y: 20, Width: 5, Height: 5}
	half := Box{X: 5, Y: 0, Width: 10, Height: 10}

	assert.Equal(t, 1.0, outer.OverlapRatio(inner))
	assert.Equal(t, 1.0, inner.OverlapRatio(outer))
	assert.Equal(t, 0.0, outer.OverlapRatio(apart))
	assert.Equal(t, 0.5, outer.OverlapRatio(half))
	assert.Equal(t, 0.0, outer.OverlapRatio(Box{}))
}
