package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Binary pixel values produced by Prepare.
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// PreprocessOptions tunes the conversion from a colour image to a binary mask.
type PreprocessOptions struct {
	// BlurSigma is the Gaussian smoothing sigma. Zero disables smoothing.
	BlurSigma float64 `json:"blur_sigma"`

	// MinContrast is the smallest luminance range (max - min) an image must
	// have before it is binarized. Flatter images are treated as blank.
	MinContrast int `json:"min_contrast"`

	// MorphRadius is the radius of the morphological opening applied to the
	// mask to remove speckle. Zero disables it.
	MorphRadius float64 `json:"morph_radius"`
}

// DefaultPreprocessOptions returns the settings used when no configuration
// file overrides them.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		BlurSigma:   1.0,
		MinContrast: 24,
		MorphRadius: 0,
	}
}

// Preprocessor turns images into two-valued masks suitable for contour tracing.
// A Preprocessor holds no mutable state and is safe for concurrent use.
type Preprocessor struct {
	opts PreprocessOptions
}

// NewPreprocessor creates a preprocessor with the given options.
func NewPreprocessor(opts PreprocessOptions) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// Prepare converts img into a LayoutGray buffer whose pixels are exactly
// Foreground or Background.
//
// # Algorithm
//
//  1. Grayscale conversion (BT.601 luminance)
//  2. Gaussian blur with BlurSigma to suppress noise
//  3. Otsu threshold over the luminance histogram
//  4. Polarity selection: whichever side of the threshold dominates the image
//     border is background, so both dark-on-light and light-on-dark inputs work
//  5. Optional opening (erode then dilate) with MorphRadius
//
// Images with less than MinContrast luminance range produce an all-background
// mask. The result is deterministic for identical input.
func (p *Preprocessor) Prepare(img *ImageBuffer) (*ImageBuffer, error) {
	if img == nil || img.width <= 0 || img.height <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrInvalidImage)
	}
	if !img.Valid() {
		return nil, fmt.Errorf("%w: pixel data does not match %dx%d %v", ErrInvalidImage, img.width, img.height, img.layout)
	}
	width, height := img.width, img.height

	gray := imaging.Grayscale(img.ToImage())
	if p.opts.BlurSigma > 0 {
		gray = imaging.Blur(gray, p.opts.BlurSigma)
	}

	var hist [256]int
	lo, hi := 255, 0
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+width*4]
		for x := 0; x < width; x++ {
			v := int(row[x*4])
			hist[v]++
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	mask := make([]uint8, width*height)
	if hi-lo < p.opts.MinContrast {
		return &ImageBuffer{width: width, height: height, layout: LayoutGray, pix: mask}, nil
	}

	level := otsuThreshold(hist[:], width*height) + 1
	thresholded := segment.Threshold(gray, uint8(level))

	// Threshold output is white for luminance >= level.
	darkForeground := borderBrightFraction(thresholded) >= 0.5
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bright := thresholded.Pix[thresholded.PixOffset(x, y)] != 0
			if bright != darkForeground {
				mask[y*width+x] = Foreground
			}
		}
	}

	if p.opts.MorphRadius > 0 {
		mask = openMask(mask, width, height, p.opts.MorphRadius)
	}

	return &ImageBuffer{width: width, height: height, layout: LayoutGray, pix: mask}, nil
}

// otsuThreshold returns the luminance t that maximises the between-class
// variance of the split [0, t] / [t+1, 255]. The result is in [0, 254] so
// that the upper class is never empty.
func otsuThreshold(hist []int, total int) int {
	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	var (
		sumB   float64
		weight int
		best   float64
		bestT  int
	)
	for t := 0; t < 255; t++ {
		weight += hist[t]
		if weight == 0 {
			continue
		}
		rest := total - weight
		if rest == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weight)
		meanF := (sumAll - sumB) / float64(rest)
		between := float64(weight) * float64(rest) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			bestT = t
		}
	}
	return bestT
}

// borderBrightFraction returns the share of border pixels that are white.
func borderBrightFraction(g *image.Gray) float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	bright, count := 0, 0
	visit := func(x, y int) {
		count++
		if g.Pix[g.PixOffset(x, y)] != 0 {
			bright++
		}
	}
	for x := 0; x < w; x++ {
		visit(x, 0)
		if h > 1 {
			visit(x, h-1)
		}
	}
	for y := 1; y < h-1; y++ {
		visit(0, y)
		if w > 1 {
			visit(w-1, y)
		}
	}
	return float64(bright) / float64(count)
}

// openMask erodes then dilates the foreground of a mask.
func openMask(mask []uint8, width, height int, radius float64) []uint8 {
	src := image.NewGray(image.Rect(0, 0, width, height))
	copy(src.Pix, mask)

	opened := effect.Dilate(effect.Erode(src, radius), radius)

	out := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if opened.Pix[opened.PixOffset(x, y)] >= 128 {
				out[y*width+x] = Foreground
			}
		}
	}
	return out
}
