package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/subject-palette/internal/extract"
	"github.com/ironsheep/subject-palette/internal/palette"
	"github.com/ironsheep/subject-palette/internal/pipeline"
	"github.com/ironsheep/subject-palette/internal/segment"
)

// newTestServer returns a server over the default pipeline with logging discarded.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(segment.New(segment.DefaultOptions()), extract.New(), palette.DefaultThreshold, logger)
	return New(p, nil, logger)
}

func TestNew(t *testing.T) {
	s := newTestServer(t)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cache == nil {
		t.Fatal("New() did not initialize cache")
	}
	if s.logger == nil {
		t.Fatal("New() did not initialize logger")
	}
}

func TestNew_NilLogger(t *testing.T) {
	s := New(nil, nil, nil)
	if s.logger == nil {
		t.Fatal("nil logger should fall back to slog.Default")
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

func TestMCPResponse_OmitsEmptyFields(t *testing.T) {
	resp := MCPResponse{
		JSONRPC: "2.0",
		ID:      1,
		Error: &MCPError{
			Code:    CodeMethodNotFound,
			Message: "Method not found",
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), `"result"`) {
		t.Errorf("error response should not carry a result: %s", data)
	}
	if strings.Contains(string(data), `"data"`) {
		t.Errorf("empty error data should be omitted: %s", data)
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t)
	s.SetVersion("1.2.3")
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if resp.ID != 1 {
		t.Errorf("ID: got %v, want 1", resp.ID)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}

	info, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("serverInfo should be a map")
	}
	if info["name"] != Name {
		t.Errorf("serverInfo.name: got %v, want %s", info["name"], Name)
	}
	if info["version"] != "1.2.3" {
		t.Errorf("serverInfo.version: got %v, want 1.2.3", info["version"])
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      "ping-1",
		Method:  "ping",
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if resp.ID != "ping-1" {
		t.Errorf("ID: got %v, want ping-1", resp.ID)
	}
}

func TestHandleRequest_InitializedNotification(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	}

	if resp := s.handleRequest(req); resp != nil {
		t.Errorf("notification should not get a response, got %+v", resp)
	}
}

func TestHandleRequest_UnknownMethod(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      7,
		Method:  "resources/list",
	}

	resp := s.handleRequest(req)

	if resp == nil || resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("Error.Code: got %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
	if !strings.Contains(resp.Error.Message, "resources/list") {
		t.Errorf("Error.Message should name the method: %s", resp.Error.Message)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatalf("tools should be []Tool, got %T", result["tools"])
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("tools: got %d, want %d", len(tools), len(GetToolDefinitions()))
	}
}

func TestServe_RespondsPerLine(t *testing.T) {
	s := newTestServer(t)
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`this is not json`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"bogus"}`,
	}, "\n")
	var out bytes.Buffer

	if err := s.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}

	dec := json.NewDecoder(&out)
	var resps []MCPResponse
	for {
		var r MCPResponse
		if err := dec.Decode(&r); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		resps = append(resps, r)
	}

	if len(resps) != 3 {
		t.Fatalf("responses: got %d, want 3", len(resps))
	}
	wantIDs := []float64{1, 2, 3}
	for i, r := range resps {
		if r.ID != wantIDs[i] {
			t.Errorf("response %d ID: got %v, want %v", i, r.ID, wantIDs[i])
		}
	}
	if resps[0].Error != nil || resps[1].Error != nil {
		t.Error("initialize and ping should succeed")
	}
	if resps[2].Error == nil || resps[2].Error.Code != CodeMethodNotFound {
		t.Errorf("bogus method: got %+v, want code %d", resps[2].Error, CodeMethodNotFound)
	}
}

func TestServe_StopsWhenContextDone(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Serve: got %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("no response expected after cancellation, got %q", out.String())
	}
}

func TestServe_StopsWhileReadBlocked(t *testing.T) {
	s := newTestServer(t)
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, pr, io.Discard)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve: got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation while its input was idle")
	}
}

func TestServe_ReportsReadError(t *testing.T) {
	s := newTestServer(t)
	pr, pw := io.Pipe()
	readFailed := errors.New("read failed")
	pw.CloseWithError(readFailed)

	err := s.Serve(context.Background(), pr, io.Discard)
	if !errors.Is(err, readFailed) {
		t.Errorf("Serve: got %v, want %v", err, readFailed)
	}
}

func TestScheduleCacheClear(t *testing.T) {
	tests := []struct {
		name    string
		sched   string
		wantErr bool
	}{
		{"descriptor", "@hourly", false},
		{"every", "@every 30m", false},
		{"five fields", "0 3 * * *", false},
		{"garbage", "not a schedule", true},
		{"six fields", "0 0 3 * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			err := s.ScheduleCacheClear(tt.sched)
			if (err != nil) != tt.wantErr {
				t.Errorf("ScheduleCacheClear(%q) error = %v, wantErr %v", tt.sched, err, tt.wantErr)
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	s := newTestServer(t)
	path := writeTestPNG(t, uniformImage(8, 8, color.NRGBA{10, 20, 30, 255}))

	if _, err := s.cache.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.cache.Len() != 1 {
		t.Fatalf("cache Len: got %d, want 1", s.cache.Len())
	}

	s.clearCache()

	if s.cache.Len() != 0 {
		t.Errorf("cache Len after clear: got %d, want 0", s.cache.Len())
	}
}
