// Package server implements the MCP (Model Context Protocol) server for subject palettes.
//
// This package provides a JSON-RPC 2.0 server that exposes the palette pipeline
// through the MCP protocol, so MCP-compatible clients can ask for the dominant
// colors of a photo's subject without going through the HTTP upload endpoint.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Information:
//   - image_load: Load image and get metadata
//   - image_sample_color: Get color at pixel
//
// Subject Palette:
//   - palette_extract: Segment the subject and return its dominant colors
//   - image_segment: Return the image with its background blanked out
//   - image_crop_subject: Crop the segmented subject to its bounding box
//
// Color Math:
//   - color_distance: CIEDE2000 difference of two hex colors
//   - palette_dedupe: Drop near-duplicate colors from a list
//
// # Image Caching
//
// Images are cached by path and reused across tool calls. When a schedule is
// registered with ScheduleCacheClear the cache is emptied on that schedule.
//
// # Error Handling
//
// Failures are returned as JSON-RPC error responses:
//   - -32601: unknown method
//   - -32602: malformed or out-of-range tool arguments, unknown tool
//   - -32000: the tool ran and failed (unreadable file, not an image, ...)
//
// # Usage
//
//	srv := server.New(pipeline.FromConfig(cfg, logger), nil, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Error("server stopped", "error", err)
//	}
package server
