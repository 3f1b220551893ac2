package detection

import (
	"sort"

	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

// Pipeline chains preprocessing, contour extraction, classification and
// overlap suppression. Once built it is read-only and may serve concurrent
// Run calls.
type Pipeline struct {
	cfg        Config
	pre        *imaging.Preprocessor
	extractor  *Extractor
	classifier *Classifier
}

// NewPipeline builds a pipeline from a copy of cfg. The config is assumed
// valid; see Config.Validate.
func NewPipeline(cfg *Config) *Pipeline {
	return &Pipeline{
		cfg:        *cfg,
		pre:        imaging.NewPreprocessor(cfg.Preprocess),
		extractor:  NewExtractor(cfg),
		classifier: NewClassifier(cfg),
	}
}

// Classifier returns the pipeline's classifier.
func (p *Pipeline) Classifier() *Classifier {
	return p.classifier
}

// Run detects every shape in img.
//
// Detections are returned in discovery order and numbered from 1. Each one
// carries the mean colour of its boundary in img. Detections below
// MinConfidence are dropped, then of any two whose bounding boxes overlap by
// more than OverlapThreshold the lower ranked is suppressed.
//
// Returns imaging.ErrInvalidImage (wrapped) when img has no pixels.
func (p *Pipeline) Run(img *imaging.ImageBuffer) (*DetectionResult, error) {
	mask, err := p.pre.Prepare(img)
	if err != nil {
		return nil, err
	}

	var dets []ShapeDetection
	for _, c := range p.extractor.Extract(mask) {
		d := p.classifier.Classify(c)
		if float64(d.Confidence) < p.cfg.MinConfidence {
			continue
		}
		sample := imaging.SampleRegionColor(img, c.imagePoints())
		d.Color = sample.Name
		d.ColorHex = sample.Hex
		dets = append(dets, d)
	}

	dets = suppressOverlaps(dets, p.cfg.OverlapThreshold)
	for i := range dets {
		dets[i].ID = i + 1
	}

	return &DetectionResult{
		Width:      img.Width(),
		Height:     img.Height(),
		Count:      len(dets),
		Detections: dets,
	}, nil
}

// suppressOverlaps removes detections whose bounding box overlaps a better
// ranked one by more than threshold. Rank is confidence (highest first), then
// discovery order. The survivors keep their original order. The returned
// slice is never nil.
func suppressOverlaps(dets []ShapeDetection, threshold float64) []ShapeDetection {
	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dets[order[a]].Confidence > dets[order[b]].Confidence
	})

	var kept []int
	for _, i := range order {
		suppressed := false
		for _, k := range kept {
			if dets[i].BoundingBox.OverlapRatio(dets[k].BoundingBox) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, i)
		}
	}
	sort.Ints(kept)

	out := make([]ShapeDetection, 0, len(kept))
	for _, i := range kept {
		out = append(out, dets[i])
	}
	return out
}
