package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/pipeline"
	"github.com/ironsheep/sketchpad/internal/studio"
)

type stubGenerator struct {
	result *pipeline.Result
	err    error
	calls  int
}

func (g *stubGenerator) Generate(ctx context.Context, src image.Image, box canvas.BoundingBox) (*pipeline.Result, error) {
	g.calls++
	return g.result, g.err
}

func (g *stubGenerator) Refine(ctx context.Context, src image.Image, box canvas.BoundingBox) (*pipeline.Result, error) {
	return &pipeline.Result{Tags: []string{}, EnhancedPrompt: "refined", GeneratedImageRef: "https://example.test/refined"}, nil
}

func newTestServer(t *testing.T, gen studio.Generator) *Server {
	t.Helper()
	surface, err := canvas.NewSurface(300, 300, canvas.Options{})
	if err != nil {
		t.Fatalf("NewSurface failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := studio.New(surface, gen, logger)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, "test", logger)
}

func TestNew(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.studio == nil {
		t.Fatal("New() did not keep the studio")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != "sketchpad" || info["version"] != "test" {
		t.Errorf("serverInfo: got %v", info)
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: "ping-1", Method: "ping"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ID != "ping-1" {
		t.Errorf("ID: got %v, want ping-1", resp.ID)
	}
}

func TestHandleRequest_InitializedNotification(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	if resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", Method: "notifications/initialized"}); resp != nil {
		t.Errorf("notification produced a response: %+v", resp)
	}
}

func TestHandleRequest_UnknownMethod(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 9, Method: "resources/list"})

	if resp.Error == nil {
		t.Fatal("expected error")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Error.Code: got %d, want -32601", resp.Error.Code)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatalf("tools: got %T, want []Tool", result["tools"])
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(GetToolDefinitions()))
	}
}

// readMessages decodes every JSON line written by Run.
func readMessages(t *testing.T, out *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var msgs []map[string]interface{}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid output line %q: %v", sc.Text(), err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func TestRun_Session(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sketch_stroke","arguments":{"points":[{"x":100,"y":100},{"x":200,"y":200}]}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	}, "\n")
	var out bytes.Buffer

	if err := s.Run(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	msgs := readMessages(t, &out)
	var ids []interface{}
	var notifications []map[string]interface{}
	var parseErrors int
	for _, m := range msgs {
		if m["method"] == "notifications/message" {
			notifications = append(notifications, m)
			continue
		}
		if errObj, ok := m["error"].(map[string]interface{}); ok && errObj["code"] == float64(-32700) {
			parseErrors++
			continue
		}
		ids = append(ids, m["id"])
	}

	if len(ids) != 3 || ids[0] != float64(1) || ids[1] != float64(2) || ids[2] != float64(3) {
		t.Errorf("response ids: got %v, want [1 2 3]", ids)
	}
	if parseErrors != 1 {
		t.Errorf("parse errors: got %d, want 1", parseErrors)
	}
	if len(notifications) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifications))
	}
	params := notifications[0]["params"].(map[string]interface{})
	data := params["data"].(map[string]interface{})
	if data["type"] != "bbox" {
		t.Errorf("event type: got %v, want bbox", data["type"])
	}
}

func TestRun_GenerationFailureHidesCause(t *testing.T) {
	cause := fmt.Errorf("%w: groq request failed: status code: 401, body: {\"error\":\"invalid api key gsk_SECRET\"}", pipeline.ErrPromptSynthesis)
	s := newTestServer(t, &stubGenerator{err: cause})

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"sketch_stroke","arguments":{"points":[{"x":100,"y":100},{"x":200,"y":200}]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sketch_generate"}}`,
	}, "\n")
	var out bytes.Buffer

	if err := s.Run(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.Contains(out.String(), "gsk_SECRET") || strings.Contains(out.String(), "401") {
		t.Errorf("upstream error text reached the client: %s", out.String())
	}

	var failures int
	for _, m := range readMessages(t, &out) {
		if m["method"] != "notifications/message" {
			continue
		}
		params := m["params"].(map[string]interface{})
		data := params["data"].(map[string]interface{})
		if data["type"] != string(studio.EventGenerationFailed) {
			continue
		}
		failures++
		if params["level"] != "error" {
			t.Errorf("level: got %v, want error", params["level"])
		}
		if data["error"] != studio.FailureMessage {
			t.Errorf("event error: got %v, want %q", data["error"], studio.FailureMessage)
		}
	}
	if failures != 1 {
		t.Errorf("generation_failed notifications: got %d, want 1", failures)
	}
}

func TestRun_UnsubscribesOnReturn(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})

	var out bytes.Buffer
	if err := s.Run(context.Background(), strings.NewReader(""), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s.studio.Clear()
	if out.Len() != 0 {
		t.Errorf("event delivered after Run returned: %s", out.String())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Run(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if err != context.Canceled {
		t.Errorf("Run: got %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("request handled after cancel: %s", out.String())
	}
}
