// Package server implements the MCP (Model Context Protocol) server for shape detection.
//
// The server speaks JSON-RPC 2.0 over stdio and exposes the detection engine
// as MCP tools.
//
// # Protocol
//
// The server communicates over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//   - Logs: stderr only
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Shape Detection:
//   - shape_detect: Detect shapes and return the detection result as JSON
//   - shape_annotate: Detect shapes and return an annotated PNG
//
// Engine Lifecycle:
//   - engine_init: Initialize (or re-initialize) the engine
//   - engine_cleanup: Release the engine and clear the image cache
//   - engine_status: Report state, last error and cache size
//   - engine_version: Report the engine version
//
// Image tools take exactly one of "path" or "image_base64".
//
// # Image Caching
//
// Images given by path are cached and reused across tool calls. Inline base64
// images are never cached. engine_cleanup empties the cache.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors with code -32000. The data
// member names the failure:
//
//	{"kind": "NotInitializedError", "detail": "engine not initialized"}
//
// Kinds are InitializationError, NotInitializedError, InvalidImageError,
// DimensionMismatchError and InternalError.
//
// # Usage
//
//	log := server.NewStderrLog(false)
//	eng := engine.New(log, engine.DefaultConfig())
//	_ = eng.Init()
//	srv := server.New(eng, log)
//	if err := srv.Run(); err != nil {
//	    log.Criticalf("%v", err)
//	}
package server
