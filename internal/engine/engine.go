// Package engine owns the detection pipeline and its lifecycle.
//
// An Engine is created once and shared. Init builds the pipeline from a
// ConfigSource, Cleanup releases it, and every detection entry point fails
// with ErrNotInitialized in between. Any number of detections may run
// concurrently; Init and Cleanup wait for them to finish.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/shape-tools-mcp/internal/annotate"
	"github.com/ironsheep/shape-tools-mcp/internal/detection"
	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ConfigSource supplies the detection configuration at Init time.
type ConfigSource func() (*detection.Config, error)

// DefaultConfig uses the built-in configuration.
func DefaultConfig() ConfigSource {
	return func() (*detection.Config, error) {
		return detection.DefaultConfig(), nil
	}
}

// ConfigFile loads the configuration from a JSON file on every Init.
func ConfigFile(path string) ConfigSource {
	return func() (*detection.Config, error) {
		return detection.LoadConfig(path)
	}
}

// StaticConfig uses cfg as given. It is validated at Init.
func StaticConfig(cfg *detection.Config) ConfigSource {
	return func() (*detection.Config, error) {
		if cfg == nil {
			return nil, fmt.Errorf("no configuration")
		}
		c := *cfg
		return &c, nil
	}
}

// Engine is the shared detection service.
type Engine struct {
	mu     sync.RWMutex
	log    logs.Log
	source ConfigSource

	state     State
	lastErr   error
	config    *detection.Config
	pipeline  *detection.Pipeline
	annotator *annotate.Annotator
}

// New creates an uninitialized engine. A nil source means DefaultConfig.
func New(log logs.Log, source ConfigSource) *Engine {
	if source == nil {
		source = DefaultConfig()
	}
	return &Engine{
		log:    log,
		source: source,
	}
}

// Init loads the configuration and builds the pipeline. Calling Init on a
// ready engine does nothing. A failed Init leaves the engine in StateFailed
// and may be retried.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateReady {
		return nil
	}

	cfg, err := e.source()
	switch {
	case err != nil:
	case cfg == nil:
		err = fmt.Errorf("config source returned no configuration")
	default:
		err = cfg.Validate()
	}
	if err != nil {
		e.state = StateFailed
		e.lastErr = fmt.Errorf("%w: %w", ErrInitialization, err)
		e.log.Errorf("Engine init failed: %v", err)
		return e.lastErr
	}

	e.config = cfg
	e.pipeline = detection.NewPipeline(cfg)
	e.annotator = annotate.New(annotate.DefaultStyle())
	e.state = StateReady
	e.lastErr = nil
	e.log.Infof("Engine ready (min_area=%v, overlap_threshold=%v)", cfg.MinArea, cfg.OverlapThreshold)
	return nil
}

// Cleanup releases the pipeline and returns the engine to
// StateUninitialized. It is safe to call at any time, any number of times.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateReady {
		e.log.Infof("Engine released")
	}
	e.state = StateUninitialized
	e.config = nil
	e.pipeline = nil
	e.annotator = nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// LastError returns the error recorded by the last operation that failed,
// or nil.
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Config returns a copy of the active configuration, or nil when the engine
// is not ready.
func (e *Engine) Config() *detection.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.config == nil {
		return nil
	}
	c := *e.config
	return &c
}

// recordErr stores err for LastError. Calls rejected because the engine is
// not ready leave no trace. Called without the write lock held.
func (e *Engine) recordErr(err error) error {
	if err != nil && !errors.Is(err, ErrNotInitialized) {
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
	}
	return err
}

// Run detects the shapes in img.
func (e *Engine) Run(img *imaging.ImageBuffer) (*detection.DetectionResult, error) {
	result, err := e.run(img)
	return result, e.recordErr(err)
}

func (e *Engine) run(img *imaging.ImageBuffer) (*detection.DetectionResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state != StateReady {
		return nil, ErrNotInitialized
	}
	result, err := e.pipeline.Run(img)
	if err != nil {
		return nil, err
	}
	e.log.Debugf("Detected %d shapes in %dx%d image", result.Count, result.Width, result.Height)
	return result, nil
}

// Classify labels a single contour without running the rest of the pipeline.
func (e *Engine) Classify(c detection.Contour) (detection.ShapeDetection, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state != StateReady {
		return detection.ShapeDetection{}, ErrNotInitialized
	}
	return e.pipeline.Classifier().Classify(c), nil
}

// DetectShapes runs detection and returns the serialized result.
func (e *Engine) DetectShapes(img *imaging.ImageBuffer) (string, error) {
	result, err := e.Run(img)
	if err != nil {
		return "", err
	}
	text, err := detection.ToText(result)
	return text, e.recordErr(err)
}

// Draw renders result onto a copy of img.
func (e *Engine) Draw(img *imaging.ImageBuffer, result *detection.DetectionResult) (*imaging.ImageBuffer, error) {
	out, err := e.draw(img, result)
	return out, e.recordErr(err)
}

func (e *Engine) draw(img *imaging.ImageBuffer, result *detection.DetectionResult) (*imaging.ImageBuffer, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state != StateReady {
		return nil, ErrNotInitialized
	}
	return e.annotator.Draw(img, result)
}

// Annotate detects the shapes in img and draws them onto a copy.
func (e *Engine) Annotate(img *imaging.ImageBuffer) (*imaging.ImageBuffer, error) {
	out, _, err := e.AnnotateWithResult(img)
	return out, err
}

// AnnotateWithResult is Annotate that also returns the detections drawn.
func (e *Engine) AnnotateWithResult(img *imaging.ImageBuffer) (*imaging.ImageBuffer, *detection.DetectionResult, error) {
	result, err := e.Run(img)
	if err != nil {
		return nil, nil, err
	}
	out, err := e.Draw(img, result)
	if err != nil {
		return nil, nil, err
	}
	return out, result, nil
}
