// Package detection finds and classifies geometric shapes in raster images.
//
// It is designed for diagrams, screenshots and other synthetic images where
// shapes are solid or outlined regions that contrast with their background.
//
// # Pipeline
//
// A Pipeline runs four stages over an imaging.ImageBuffer:
//
//  1. Preprocessing: grayscale, blur and Otsu binarization (imaging.Preprocessor)
//  2. Extraction: Moore-neighbour tracing of each connected region's outer
//     boundary, with small regions discarded as noise (Extractor)
//  3. Classification: each contour is fitted as a circle, rectangle, triangle
//     and polygon, and the best valid fit wins (Classifier)
//  4. Suppression: of two detections whose bounding boxes mostly overlap, the
//     lower confidence one is dropped
//
// The result serializes with ToText and parses back with ParseText.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Integer coordinates are pixel centres
//   - Bounding boxes give the top-left pixel and the pixel width and height
//
// # Confidence Scores
//
// Each candidate computes a residual scaled by its tolerance, so a residual of
// 1 is the limit of acceptance. Confidence is 1 - residual², which makes it
// fall off slowly for small deviations and reach 0 at the limit:
//   - 1.0 = Perfect match
//   - 0.75 = residual at half the tolerance
//   - 0.0 = Unknown shape, no candidate accepted it
//
// # Limitations
//
// These algorithms work best on clean, high-contrast images:
//   - Shapes that touch or overlap are traced as one region
//   - Holes are not traced; a ring reports only its outer boundary
//   - Very small shapes (under about 9x9 pixels) are treated as noise
//
// Noisy images, photographs, or hand-drawn content may produce poor results.
package detection
