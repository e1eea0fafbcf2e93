package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/ironsheep/subject-palette/internal/imaging"
	"github.com/ironsheep/subject-palette/internal/pipeline"
)

// Name is reported to clients in the initialize handshake.
const Name = "palette-mcp"

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// Server handles MCP protocol communication
type Server struct {
	pipeline *pipeline.Pipeline
	cache    *imaging.ImageCache
	logger   *slog.Logger
	cron     *cron.Cron
	version  string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes used by the server.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeToolFailure    = -32000
)

// New creates a server that runs tools through p and loads files via cache.
// A nil cache gets a fresh one; a nil logger uses slog.Default.
func New(p *pipeline.Pipeline, cache *imaging.ImageCache, logger *slog.Logger) *Server {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline: p,
		cache:    cache,
		logger:   logger,
		cron:     cron.New(),
		version:  "dev",
	}
}

// SetVersion sets the version reported in serverInfo.
func (s *Server) SetVersion(v string) {
	s.version = v
}

// ScheduleCacheClear empties the image cache on the given five-field cron
// schedule (descriptors such as "@hourly" are accepted). The schedule runs
// while Serve is active.
func (s *Server) ScheduleCacheClear(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.clearCache); err != nil {
		return fmt.Errorf("invalid cache clear schedule %q: %w", schedule, err)
	}
	s.logger.Debug("image cache clearing scheduled", "schedule", schedule)
	return nil
}

func (s *Server) clearCache() {
	if s.cache.Len() == 0 {
		return
	}
	n := s.cache.Clear()
	s.logger.Debug("image cache cleared", "images", n)
}

// Run serves MCP on stdin and stdout until stdin closes or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to w.
// Lines that are not valid JSON are logged and skipped. It returns nil when r
// reaches EOF and ctx.Err() as soon as ctx is done, even while a read from r
// is still blocked.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.cron.Start()
	defer s.cron.Stop()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go s.readLines(ctx, r, lines, readErr)

	encoder := json.NewEncoder(w)

	for {
		var line []byte
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := <-readErr; err != nil {
				return fmt.Errorf("scanner error: %w", err)
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "method", req.Method, "error", err)
			}
		}
	}
}

// readLines sends every non-empty line of r on lines, then reports the scan
// error on errc and closes lines. It stops early once ctx is done; a read
// that is already blocked ends only when r is closed.
func (s *Server) readLines(ctx context.Context, r io.Reader, lines chan<- []byte, errc chan<- error) {
	defer close(lines)

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		line := append([]byte(nil), scanner.Bytes()...)
		select {
		case lines <- line:
		case <-ctx.Done():
			errc <- nil
			return
		}
	}
	errc <- scanner.Err()
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.logger.Debug("request received", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    CodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": s.version,
			},
		},
	}
}
