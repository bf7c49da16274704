package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/pipeline"
	"github.com/ironsheep/sketchpad/internal/studio"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sketch_stroke", "sketch_generate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Strokes
	case "sketch_begin_stroke":
		return s.handleBeginStroke(args)
	case "sketch_extend_stroke":
		return s.handleExtendStroke(args)
	case "sketch_end_stroke":
		return s.handleEndStroke()
	case "sketch_stroke":
		return s.handleStroke(args)

	// Surface state
	case "sketch_set_tool":
		return s.handleSetTool(args)
	case "sketch_clear":
		return s.handleClear()
	case "sketch_resize":
		return s.handleResize(args)
	case "sketch_bounding_box":
		return s.handleBoundingBox()
	case "sketch_snapshot":
		return s.handleSnapshot(args)

	// Generation
	case "sketch_generate":
		return s.handleGenerate(ctx, args)
	case "sketch_dismiss_generated":
		return s.handleDismissGenerated()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
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
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, v)
}

// StrokeResult reports the surface state after a stroke operation.
type StrokeResult struct {
	Drawing     bool                `json:"drawing"`
	BoundingBox *canvas.BoundingBox `json:"boundingBox"`
}

// BoundingBoxResult reports the current bounding box.
type BoundingBoxResult struct {
	Empty       bool                `json:"empty"`
	BoundingBox *canvas.BoundingBox `json:"boundingBox"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
}

// ToolStateResult reports the active tool and pen width.
type ToolStateResult struct {
	Tool        string  `json:"tool"`
	PenWidth    float64 `json:"pen_width"`
	EraserWidth float64 `json:"eraser_width"`
}

// === Stroke Handlers ===

type pointArgs struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (a pointArgs) point() (canvas.Point, error) {
	if a.X == nil || a.Y == nil {
		return canvas.Point{}, errors.New("x and y are required")
	}
	return canvas.Point{X: *a.X, Y: *a.Y}, nil
}

func (s *Server) handleBeginStroke(args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := a.point()
	if err != nil {
		return nil, err
	}
	s.studio.BeginStroke(p)
	return StrokeResult{Drawing: s.studio.Surface().Drawing(), BoundingBox: s.studio.BoundingBox()}, nil
}

func (s *Server) handleExtendStroke(args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := a.point()
	if err != nil {
		return nil, err
	}
	if err := s.studio.ExtendStroke(p); err != nil {
		return nil, err
	}
	return StrokeResult{Drawing: s.studio.Surface().Drawing(), BoundingBox: s.studio.BoundingBox()}, nil
}

func (s *Server) handleEndStroke() (interface{}, error) {
	box := s.studio.EndStroke()
	return StrokeResult{Drawing: false, BoundingBox: box}, nil
}

type strokeArgs struct {
	Points []canvas.Point `json:"points"`
	Tool   string         `json:"tool"`
	Width  float64        `json:"width"`
}

func (s *Server) handleStroke(args json.RawMessage) (interface{}, error) {
	var a strokeArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, errors.New("points must contain at least one point")
	}
	if err := s.applyTool(a.Tool, a.Width); err != nil {
		return nil, err
	}
	box, err := s.studio.Stroke(a.Points)
	if err != nil {
		return nil, err
	}
	return StrokeResult{Drawing: false, BoundingBox: box}, nil
}

// === Surface State Handlers ===

type setToolArgs struct {
	Tool  string  `json:"tool"`
	Width float64 `json:"width"`
}

func (s *Server) handleSetTool(args json.RawMessage) (interface{}, error) {
	var a setToolArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := s.applyTool(a.Tool, a.Width); err != nil {
		return nil, err
	}
	return s.toolState(), nil
}

func (s *Server) applyTool(name string, width float64) error {
	if name != "" {
		tool, err := canvas.ParseTool(name)
		if err != nil {
			return err
		}
		s.studio.SetTool(tool)
	}
	if width != 0 {
		s.studio.SetPenWidth(width)
	}
	return nil
}

func (s *Server) toolState() ToolStateResult {
	surface := s.studio.Surface()
	return ToolStateResult{
		Tool:        surface.Tool().String(),
		PenWidth:    surface.PenWidth(),
		EraserWidth: surface.EraserWidth(),
	}
}

func (s *Server) handleClear() (interface{}, error) {
	s.studio.Clear()
	return map[string]interface{}{"cleared": true}, nil
}

type resizeArgs struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleResize(args json.RawMessage) (interface{}, error) {
	var a resizeArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := s.studio.Resize(a.Width, a.Height); err != nil {
		return nil, err
	}
	return s.boundingBoxResult(), nil
}

func (s *Server) handleBoundingBox() (interface{}, error) {
	return s.boundingBoxResult(), nil
}

func (s *Server) boundingBoxResult() BoundingBoxResult {
	box := s.studio.BoundingBox()
	w, h := s.studio.Surface().Size()
	return BoundingBoxResult{Empty: box == nil, BoundingBox: box, Width: w, Height: h}
}

type snapshotArgs struct {
	Outline bool `json:"outline"`
}

func (s *Server) handleSnapshot(args json.RawMessage) (interface{}, error) {
	var a snapshotArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.studio.Snapshot(a.Outline)
}

// === Generation Handlers ===

type generateArgs struct {
	Mode string `json:"mode"`
}

func (s *Server) handleGenerate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a generateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	mode := studio.ModeEnhance
	switch a.Mode {
	case "", string(studio.ModeEnhance):
	case string(studio.ModeRefine):
		mode = studio.ModeRefine
	default:
		return nil, fmt.Errorf("unknown mode: %s", a.Mode)
	}

	res, err := s.studio.Generate(ctx, mode)
	if err != nil {
		if errors.Is(err, pipeline.ErrPromptSynthesis) {
			return nil, errors.New(studio.FailureMessage)
		}
		return nil, err
	}
	return res, nil
}

func (s *Server) handleDismissGenerated() (interface{}, error) {
	s.studio.DismissGenerated()
	return map[string]interface{}{"dismissed": true}, nil
}
