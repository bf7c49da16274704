package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"strings"
	"testing"

	"github.com/ironsheep/sketchpad/internal/pipeline"
)

// callTool runs a tools/call request and returns the decoded tool result.
func callTool(t *testing.T, s *Server, name string, args interface{}) (map[string]interface{}, *MCPError) {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("tool result is not JSON: %v", err)
	}
	return out, nil
}

func mustCall(t *testing.T, s *Server, name string, args interface{}) map[string]interface{} {
	t.Helper()
	out, mcpErr := callTool(t, s, name, args)
	if mcpErr != nil {
		t.Fatalf("%s failed: %s: %v", name, mcpErr.Message, mcpErr.Data)
	}
	return out
}

func boxOf(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	box, ok := result["boundingBox"].(map[string]interface{})
	if !ok {
		t.Fatalf("boundingBox missing or null: %v", result)
	}
	return box
}

func diagonalArgs() map[string]interface{} {
	return map[string]interface{}{
		"points": []map[string]float64{{"x": 100, "y": 100}, {"x": 200, "y": 200}},
	}
}

func TestHandleToolsCall_PointerStroke(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	begin := mustCall(t, s, "sketch_begin_stroke", map[string]float64{"x": 100, "y": 100})
	if begin["drawing"] != true {
		t.Errorf("drawing after begin: got %v, want true", begin["drawing"])
	}
	mustCall(t, s, "sketch_extend_stroke", map[string]float64{"x": 150, "y": 150})
	mustCall(t, s, "sketch_extend_stroke", map[string]float64{"x": 200, "y": 200})
	end := mustCall(t, s, "sketch_end_stroke", nil)

	box := boxOf(t, end)
	minX := box["minX"].(float64)
	maxX := box["maxX"].(float64)
	if minX < 76 || minX > 80 {
		t.Errorf("minX: got %v, want about 80", minX)
	}
	if maxX < 220 || maxX > 224 {
		t.Errorf("maxX: got %v, want about 220", maxX)
	}
}

func TestHandleToolsCall_StrokeRequiresPoints(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	_, mcpErr := callTool(t, s, "sketch_stroke", map[string]interface{}{"points": []interface{}{}})
	if mcpErr == nil || mcpErr.Code != -32000 {
		t.Fatalf("expected tool error, got %v", mcpErr)
	}
}

func TestHandleToolsCall_MissingCoordinates(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	_, mcpErr := callTool(t, s, "sketch_begin_stroke", map[string]float64{"x": 3})
	if mcpErr == nil {
		t.Fatal("expected error for missing y")
	}
	if !strings.Contains(mcpErr.Data.(string), "required") {
		t.Errorf("error data: got %v", mcpErr.Data)
	}
}

func TestHandleToolsCall_SetTool(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantTool   string
		wantWidth  float64
		wantEraser float64
	}{
		{"eraser", map[string]interface{}{"tool": "eraser"}, "eraser", 3, 9},
		{"width only", map[string]interface{}{"width": 8}, "eraser", 8, 24},
		{"clamped", map[string]interface{}{"tool": "pen", "width": 99}, "pen", 20, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustCall(t, s, "sketch_set_tool", tt.args)
			if out["tool"] != tt.wantTool {
				t.Errorf("tool: got %v, want %s", out["tool"], tt.wantTool)
			}
			if out["pen_width"] != tt.wantWidth {
				t.Errorf("pen_width: got %v, want %v", out["pen_width"], tt.wantWidth)
			}
			if out["eraser_width"] != tt.wantEraser {
				t.Errorf("eraser_width: got %v, want %v", out["eraser_width"], tt.wantEraser)
			}
		})
	}

	if _, mcpErr := callTool(t, s, "sketch_set_tool", map[string]interface{}{"tool": "spray"}); mcpErr == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestHandleToolsCall_EraseEverything(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	mustCall(t, s, "sketch_stroke", map[string]interface{}{
		"points": []map[string]float64{{"x": 50, "y": 50}, {"x": 150, "y": 50}},
	})

	out := mustCall(t, s, "sketch_stroke", map[string]interface{}{
		"tool":   "eraser",
		"width":  5,
		"points": []map[string]float64{{"x": 30, "y": 50}, {"x": 170, "y": 50}},
	})
	if out["boundingBox"] != nil {
		t.Errorf("boundingBox after erasing: got %v, want null", out["boundingBox"])
	}
}

func TestHandleToolsCall_BoundingBoxAndClear(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	out := mustCall(t, s, "sketch_bounding_box", nil)
	if out["empty"] != true {
		t.Errorf("fresh canvas empty: got %v", out["empty"])
	}
	if out["width"] != float64(300) || out["height"] != float64(300) {
		t.Errorf("canvas size: got %vx%v", out["width"], out["height"])
	}

	mustCall(t, s, "sketch_stroke", diagonalArgs())
	out = mustCall(t, s, "sketch_bounding_box", nil)
	if out["empty"] != false {
		t.Error("canvas still empty after stroke")
	}

	mustCall(t, s, "sketch_clear", nil)
	out = mustCall(t, s, "sketch_bounding_box", nil)
	if out["empty"] != true {
		t.Error("canvas not empty after clear")
	}
}

func TestHandleToolsCall_Resize(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	mustCall(t, s, "sketch_stroke", diagonalArgs())

	out := mustCall(t, s, "sketch_resize", map[string]int{"width": 800, "height": 600})
	if out["width"] != float64(800) || out["height"] != float64(600) {
		t.Errorf("size: got %vx%v, want 800x600", out["width"], out["height"])
	}
	if out["empty"] != true {
		t.Error("drawing survived resize")
	}

	if _, mcpErr := callTool(t, s, "sketch_resize", map[string]int{"width": 0, "height": 600}); mcpErr == nil {
		t.Error("expected error for zero width")
	}
}

func TestHandleToolsCall_Snapshot(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	mustCall(t, s, "sketch_stroke", diagonalArgs())

	for _, outline := range []bool{false, true} {
		out := mustCall(t, s, "sketch_snapshot", map[string]bool{"outline": outline})

		if out["mime_type"] != "image/png" {
			t.Errorf("mime_type: got %v", out["mime_type"])
		}
		raw, err := base64.StdEncoding.DecodeString(out["image_base64"].(string))
		if err != nil {
			t.Fatalf("failed to decode base64: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("snapshot is not a PNG: %v", err)
		}
		if img.Bounds().Dx() != 300 {
			t.Errorf("snapshot width: got %d, want 300", img.Bounds().Dx())
		}
	}
}

func TestHandleToolsCall_GenerateNothingDrawn(t *testing.T) {
	gen := &stubGenerator{}
	s := newTestServer(t, gen)

	_, mcpErr := callTool(t, s, "sketch_generate", nil)
	if mcpErr == nil {
		t.Fatal("expected error on empty canvas")
	}
	if !strings.Contains(mcpErr.Data.(string), "nothing drawn") {
		t.Errorf("error data: got %v", mcpErr.Data)
	}
	if gen.calls != 0 {
		t.Errorf("pipeline invoked %d times on empty canvas", gen.calls)
	}
}

func TestHandleToolsCall_Generate(t *testing.T) {
	gen := &stubGenerator{result: &pipeline.Result{
		Tags:              []string{"line"},
		EnhancedPrompt:    "An ink line",
		GeneratedImageRef: "https://image.pollinations.ai/prompt/An%20ink%20line?width=140&height=140&seed=1&nologo=true",
		Width:             140,
		Height:            140,
		Seed:              1,
	}}
	s := newTestServer(t, gen)
	mustCall(t, s, "sketch_stroke", diagonalArgs())

	out := mustCall(t, s, "sketch_generate", map[string]string{"mode": "enhance"})
	if out["enhancedPrompt"] != "An ink line" {
		t.Errorf("enhancedPrompt: got %v", out["enhancedPrompt"])
	}
	if !strings.HasPrefix(out["generatedImage"].(string), "https://image.pollinations.ai/prompt/") {
		t.Errorf("generatedImage: got %v", out["generatedImage"])
	}

	refined := mustCall(t, s, "sketch_generate", map[string]string{"mode": "refine"})
	if refined["enhancedPrompt"] != "refined" {
		t.Errorf("refine mode: got %v", refined["enhancedPrompt"])
	}

	if _, mcpErr := callTool(t, s, "sketch_generate", map[string]string{"mode": "dream"}); mcpErr == nil {
		t.Error("expected error for unknown mode")
	}

	mustCall(t, s, "sketch_dismiss_generated", nil)
	if s.studio.Generated() != nil {
		t.Error("generated result survived dismiss")
	}
	if s.studio.BoundingBox() == nil {
		t.Error("dismiss dropped the drawing")
	}
}

func TestHandleToolsCall_GeneratePromptFailureIsGeneric(t *testing.T) {
	gen := &stubGenerator{err: pipeline.ErrPromptSynthesis}
	s := newTestServer(t, gen)
	mustCall(t, s, "sketch_stroke", diagonalArgs())

	_, mcpErr := callTool(t, s, "sketch_generate", nil)
	if mcpErr == nil {
		t.Fatal("expected error")
	}
	if mcpErr.Data != "failed to generate image" {
		t.Errorf("error data: got %v", mcpErr.Data)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	_, mcpErr := callTool(t, s, "image_load", map[string]string{"path": "/tmp/x.png"})
	if mcpErr == nil || mcpErr.Code != -32000 {
		t.Fatalf("expected tool error, got %v", mcpErr)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`[1,2]`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}
