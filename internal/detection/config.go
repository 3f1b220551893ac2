package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

// Config holds every tunable of the detection pipeline. Values are read once
// when a pipeline is built; changing a Config afterwards has no effect on it.
type Config struct {
	// Preprocess controls binarization.
	Preprocess imaging.PreprocessOptions `json:"preprocess"`

	// MinPerimeter drops contours whose boundary is shorter than this (pixels).
	MinPerimeter float64 `json:"min_perimeter"`

	// MinArea drops contours enclosing less than this many square pixels.
	MinArea float64 `json:"min_area"`

	// ApproxEpsilon is the polygon simplification tolerance as a fraction of
	// the contour perimeter.
	ApproxEpsilon float64 `json:"approx_epsilon"`

	// ApproxWidthRatio caps the simplification tolerance at this fraction of
	// the contour's mean width (twice its area over its perimeter), so thin
	// bars keep their corners.
	ApproxWidthRatio float64 `json:"approx_width_ratio"`

	// CircleTolerance is the largest accepted coefficient of variation of the
	// distances from the centroid to the boundary.
	CircleTolerance float64 `json:"circle_tolerance"`

	// CirclePreference is the circle confidence at or above which a valid
	// circle is reported instead of a higher-scoring polygon. Small circles
	// simplify to octagons whose area can match the contour exactly.
	CirclePreference float64 `json:"circle_preference"`

	// RectAngleTolerance is the largest accepted corner deviation from 90°,
	// in degrees.
	RectAngleTolerance float64 `json:"rect_angle_tolerance"`

	// RectSideTolerance is the largest accepted relative length difference
	// between opposite sides.
	RectSideTolerance float64 `json:"rect_side_tolerance"`

	// AreaTolerance is the largest accepted relative difference between the
	// contour area and the area of the fitted polygon.
	AreaTolerance float64 `json:"area_tolerance"`

	// MaxTriangleSideRatio rejects triangles whose longest side exceeds the
	// shortest by more than this factor.
	MaxTriangleSideRatio float64 `json:"max_triangle_side_ratio"`

	// ElongatedAspect marks rectangles with width/height at or above it.
	ElongatedAspect float64 `json:"elongated_aspect"`

	// MinConfidence drops detections scoring below it.
	MinConfidence float64 `json:"min_confidence"`

	// OverlapThreshold is the bounding-box overlap (intersection over the
	// smaller area) above which the weaker of two detections is suppressed.
	OverlapThreshold float64 `json:"overlap_threshold"`
}

// ErrInvalidConfig is wrapped by every Validate and LoadConfig failure.
var ErrInvalidConfig = errors.New("invalid detection config")

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Preprocess:           imaging.DefaultPreprocessOptions(),
		MinPerimeter:         16,
		MinArea:              64,
		ApproxEpsilon:        0.02,
		ApproxWidthRatio:     0.5,
		CircleTolerance:      0.1,
		CirclePreference:     0.94,
		RectAngleTolerance:   15,
		RectSideTolerance:    0.3,
		AreaTolerance:        0.1,
		MaxTriangleSideRatio: 5,
		ElongatedAspect:      2,
		MinConfidence:        0,
		OverlapThreshold:     0.85,
	}
}

// Validate checks that every field is in range.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"preprocess.blur_sigma must be >= 0", c.Preprocess.BlurSigma >= 0},
		{"preprocess.min_contrast must be in [0,255]", c.Preprocess.MinContrast >= 0 && c.Preprocess.MinContrast <= 255},
		{"preprocess.morph_radius must be >= 0", c.Preprocess.MorphRadius >= 0},
		{"min_perimeter must be >= 0", c.MinPerimeter >= 0},
		{"min_area must be >= 0", c.MinArea >= 0},
		{"approx_epsilon must be in (0,1)", c.ApproxEpsilon > 0 && c.ApproxEpsilon < 1},
		{"approx_width_ratio must be in (0,1]", c.ApproxWidthRatio > 0 && c.ApproxWidthRatio <= 1},
		{"circle_tolerance must be > 0", c.CircleTolerance > 0},
		{"circle_preference must be in (0,1]", c.CirclePreference > 0 && c.CirclePreference <= 1},
		{"rect_angle_tolerance must be in (0,90]", c.RectAngleTolerance > 0 && c.RectAngleTolerance <= 90},
		{"rect_side_tolerance must be > 0", c.RectSideTolerance > 0},
		{"area_tolerance must be > 0", c.AreaTolerance > 0},
		{"max_triangle_side_ratio must be >= 1", c.MaxTriangleSideRatio >= 1},
		{"elongated_aspect must be >= 1", c.ElongatedAspect >= 1},
		{"min_confidence must be in [0,1]", c.MinConfidence >= 0 && c.MinConfidence <= 1},
		{"overlap_threshold must be in (0,1]", c.OverlapThreshold > 0 && c.OverlapThreshold <= 1},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, chk.name)
		}
	}
	return nil
}

// LoadConfig reads a JSON configuration file. Fields missing from the file
// keep their DefaultConfig values; unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
