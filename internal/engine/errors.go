package engine

import (
	"errors"

	"github.com/ironsheep/shape-tools-mcp/internal/annotate"
	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

var (
	// ErrInitialization is returned when Init cannot load or validate its
	// configuration.
	ErrInitialization = errors.New("engine initialization failed")

	// ErrNotInitialized is returned by operations called before a successful
	// Init or after Cleanup.
	ErrNotInitialized = errors.New("engine not initialized")
)

// Error kinds reported to clients.
const (
	KindInitialization    = "InitializationError"
	KindNotInitialized    = "NotInitializedError"
	KindInvalidImage      = "InvalidImageError"
	KindDimensionMismatch = "DimensionMismatchError"
	KindInternal          = "InternalError"
)

// ErrorKind maps an error returned by the engine to the name clients see.
// Errors the engine does not recognise are InternalError; nil maps to "".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInitialization):
		return KindInitialization
	case errors.Is(err, ErrNotInitialized):
		return KindNotInitialized
	case errors.Is(err, imaging.ErrInvalidImage):
		return KindInvalidImage
	case errors.Is(err, annotate.ErrDimensionMismatch):
		return KindDimensionMismatch
	default:
		return KindInternal
	}
}
