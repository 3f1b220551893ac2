package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// imageSourceProperties are shared by every tool that takes an image. Exactly
// one of path or image_base64 must be given.
func imageSourceProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to a PNG, JPEG or GIF file. Mutually exclusive with image_base64",
		},
		"image_base64": map[string]interface{}{
			"type":        "string",
			"description": "Base64 encoded image data, optionally as a data: URL. Mutually exclusive with path",
		},
	}
}

func noArgumentsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	annotateProps := imageSourceProperties()
	annotateProps["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional path to also write the annotated PNG to",
	}

	return []Tool{
		// Shape Detection
		{
			Name: "shape_detect",
			Description: "Detect geometric shapes (circles, rectangles, triangles, polygons) in an image. " +
				"Returns each shape's kind, confidence (0-1), geometry, bounding box and colour, " +
				"in top-to-bottom discovery order.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": imageSourceProperties(),
			},
		},
		{
			Name: "shape_annotate",
			Description: "Detect shapes and return a copy of the image with each shape outlined and " +
				"labelled with its kind and confidence, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": annotateProps,
			},
		},

		// Engine Lifecycle
		{
			Name:        "engine_init",
			Description: "Initialize the detection engine. The server initializes it at startup; call this after engine_cleanup or after a failed startup to retry. Does nothing when already ready.",
			InputSchema: noArgumentsSchema(),
		},
		{
			Name:        "engine_cleanup",
			Description: "Release the detection engine and clear the image cache. Detection tools fail with NotInitializedError until engine_init is called.",
			InputSchema: noArgumentsSchema(),
		},
		{
			Name:        "engine_status",
			Description: "Report the engine state (uninitialized, ready or failed), the last error and the cache size.",
			InputSchema: noArgumentsSchema(),
		},
		{
			Name:        "engine_version",
			Description: "Report the engine version.",
			InputSchema: noArgumentsSchema(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
