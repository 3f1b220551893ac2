package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/shape-tools-mcp/internal/engine"
	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "shape_detect", "engine_status").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// ToolErrorData is the data member of a tool failure response.
type ToolErrorData struct {
	// Kind is one of the engine error kinds, e.g. "InvalidImageError".
	Kind string `json:"kind"`

	// Detail is the full error message.
	Detail string `json:"detail"`
}

// errBadArguments marks tool arguments that are not valid JSON.
var errBadArguments = errors.New("invalid tool arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// and a ToolErrorData payload naming the error kind.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warnf("Tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", ToolErrorData{
			Kind:   engine.ErrorKind(err),
			Detail: err.Error(),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Loads the image from the cache or decodes it from base64
//  3. Calls the engine
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Shape Detection
	case "shape_detect":
		return s.handleShapeDetect(args)
	case "shape_annotate":
		return s.handleShapeAnnotate(args)

	// Engine Lifecycle
	case "engine_init":
		return s.handleEngineInit()
	case "engine_cleanup":
		return s.handleEngineCleanup()
	case "engine_status":
		return s.handleEngineStatus()
	case "engine_version":
		return s.handleEngineVersion()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shape Detection Handlers ===

type imageSourceArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
}

// decodeArgs unmarshals tool arguments. A missing arguments object is
// treated as empty.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %w", errBadArguments, err)
	}
	return nil
}

// loadImage resolves the image source of a tool call. File images are cached
// by path; inline images are decoded on every call.
func (s *Server) loadImage(a imageSourceArgs) (*imaging.ImageBuffer, error) {
	switch {
	case a.Path != "" && a.ImageBase64 != "":
		return nil, fmt.Errorf("%w: give either path or image_base64, not both", imaging.ErrInvalidImage)
	case a.Path != "":
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", imaging.ErrInvalidImage, err)
		}
		return img, nil
	case a.ImageBase64 != "":
		img, err := imaging.DecodeBase64(a.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", imaging.ErrInvalidImage, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: path or image_base64 is required", imaging.ErrInvalidImage)
	}
}

func (s *Server) handleShapeDetect(args json.RawMessage) (interface{}, error) {
	var a imageSourceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a)
	if err != nil {
		return nil, err
	}
	text, err := s.engine.DetectShapes(img)
	if err != nil {
		return nil, err
	}
	// Already formatted; embed verbatim.
	return json.RawMessage(text), nil
}

type shapeAnnotateArgs struct {
	imageSourceArgs
	OutputPath string `json:"output_path"`
}

// ShapeAnnotateResult is returned by shape_annotate.
type ShapeAnnotateResult struct {
	*imaging.EncodedImage

	// Detections is the number of shapes drawn.
	Detections int `json:"detections"`

	// OutputPath is set when the image was also written to disk.
	OutputPath string `json:"output_path,omitempty"`
}

func (s *Server) handleShapeAnnotate(args json.RawMessage) (interface{}, error) {
	var a shapeAnnotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.imageSourceArgs)
	if err != nil {
		return nil, err
	}

	out, result, err := s.engine.AnnotateWithResult(img)
	if err != nil {
		return nil, err
	}

	encoded, err := imaging.EncodePNGBase64(out)
	if err != nil {
		return nil, err
	}
	if a.OutputPath != "" {
		if err := imaging.SavePNG(a.OutputPath, out); err != nil {
			return nil, err
		}
	}

	return &ShapeAnnotateResult{
		EncodedImage: encoded,
		Detections:   result.Count,
		OutputPath:   a.OutputPath,
	}, nil
}

// === Engine Lifecycle Handlers ===

// EngineStatus is returned by the engine lifecycle tools.
type EngineStatus struct {
	State      string `json:"state"`
	LastError  string `json:"last_error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	CachedKeys int    `json:"cached_images"`
}

func (s *Server) status() *EngineStatus {
	st := &EngineStatus{
		State:      s.engine.State().String(),
		CachedKeys: s.cache.Len(),
	}
	if err := s.engine.LastError(); err != nil {
		st.LastError = err.Error()
		st.ErrorKind = engine.ErrorKind(err)
	}
	return st
}

func (s *Server) handleEngineInit() (interface{}, error) {
	if err := s.engine.Init(); err != nil {
		return nil, err
	}
	return s.status(), nil
}

func (s *Server) handleEngineCleanup() (interface{}, error) {
	s.engine.Cleanup()
	s.cache.Clear()
	return s.status(), nil
}

func (s *Server) handleEngineStatus() (interface{}, error) {
	return s.status(), nil
}

func (s *Server) handleEngineVersion() (interface{}, error) {
	return map[string]string{
		"name":    ServerName,
		"version": engine.Version(),
	}, nil
}
