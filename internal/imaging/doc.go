// Package imaging provides the image buffer and the image processing stages
// that run before shape detection.
//
// ImageBuffer owns a decoded pixel matrix in one of three layouts (gray, RGB,
// RGBA). Buffers are immutable once built; every operation that produces a
// different image returns a new buffer. Decoding and encoding (PNG, JPEG and
// GIF input, PNG output, base64 transport) live in loader.go.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Preprocessing
//
// Preprocessor.Prepare turns any buffer into a binary gray mask whose pixels
// are exactly Foreground or Background. It smooths, picks a threshold with
// Otsu's method and decides polarity from the image border, so dark shapes on
// a light page and light shapes on a dark page both come out as foreground.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Preprocessor and the
// sampling functions hold no mutable state and may be called concurrently.
//
// # Color Representation
//
// Sampled colours are reported as a hex string "#rrggbb" (alpha excluded)
// plus a coarse name such as "red" or "gray", see NameColor.
//
// # Error Handling
//
// Buffers with no pixels, an unknown layout or mismatched pixel data are
// rejected with an error wrapping ErrInvalidImage. File and codec failures are
// returned wrapped with context.
package imaging
