// Package server implements the MCP (Model Context Protocol) server for the
// sketchpad.
//
// This package provides a JSON-RPC 2.0 server that lets an MCP client draw on
// a canvas and turn the drawing into a generated image. One server drives one
// studio session.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Requests are handled one at a time, in arrival order.
//
// # Available Tools
//
// Strokes:
//   - sketch_begin_stroke, sketch_extend_stroke, sketch_end_stroke: Pointer-style drawing
//   - sketch_stroke: A whole stroke in one call
//
// Surface State:
//   - sketch_set_tool: Pen or eraser, pen width
//   - sketch_clear: Erase everything
//   - sketch_resize: Reallocate the canvas (discards the drawing)
//   - sketch_bounding_box: Current padded bounding box
//   - sketch_snapshot: Canvas as PNG, optionally outlined
//
// Generation:
//   - sketch_generate: Drawing to image URL
//   - sketch_dismiss_generated: Drop the generated image, keep the drawing
//
// # Notifications
//
// Studio events (bounding box updates, clears, generation results and
// failures) are sent as notifications/message while Run is active.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Prompt synthesis failures are reported with a generic message; the cause is
// logged to stderr.
package server
