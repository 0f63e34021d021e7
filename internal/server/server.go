package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/pipeline"
	"github.com/ironsheep/docscan/internal/storage"
)

// ProtocolVersion is the MCP protocol revision the server speaks.
const ProtocolVersion = "2024-11-05"

// DefaultMaxPreview bounds the longer side of base64 page previews.
const DefaultMaxPreview = 1024

// Server exposes the document pipeline as MCP tools.
type Server struct {
	cache      *imaging.ImageCache
	pipeline   *pipeline.Pipeline
	store      *storage.Store
	logger     zerolog.Logger
	maxPreview int
	version    string
}

// Options configure a Server. Zero fields get defaults.
type Options struct {
	Pipeline *pipeline.Pipeline

	// Store receives documents from document_scan and answers
	// document_search when no base_dir is given. Nil disables saving.
	Store *storage.Store

	Logger     zerolog.Logger
	MaxPreview int
	Version    string
}

// MCPRequest is one JSON-RPC request line read from the client. Requests
// without an ID are notifications.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse is one JSON-RPC response line written to the client.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError is the error member of a JSON-RPC response.
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server around the scanning pipeline in opts.
func New(opts Options) *Server {
	s := &Server{
		cache:      imaging.NewImageCache(imaging.DefaultCacheSize),
		pipeline:   opts.Pipeline,
		store:      opts.Store,
		logger:     opts.Logger.With().Str("component", "mcp").Logger(),
		maxPreview: opts.MaxPreview,
		version:    opts.Version,
	}
	if s.pipeline == nil {
		s.pipeline = pipeline.New(pipeline.Options{Logger: opts.Logger})
	}
	if s.maxPreview <= 0 {
		s.maxPreview = DefaultMaxPreview
	}
	if s.version == "" {
		s.version = "dev"
	}
	return s
}

// Run serves the process's stdin and stdout until stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve answers newline-delimited JSON-RPC requests from r on w until r
// is exhausted or ctx is canceled. Unparseable lines are logged and
// skipped.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Tool arguments are small; 1 MiB leaves room for long paths and queries.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn().Err(err).Msg("failed to parse request")
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error().Err(err).Msg("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest dispatches on the method name. It returns nil for
// notifications.
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.logger.Debug().Str("method", req.Method).Interface("id", req.ID).Msg("request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
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
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize advertises the tools capability and the build version.
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
				"name":    "docscan",
				"version": s.version,
			},
		},
	}
}
