package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/pipeline"
	"github.com/ironsheep/docscan/internal/storage"
)

// errNoStore is returned by document_search without a store or base_dir.
var errNoStore = errors.New("no document store configured and no base_dir given")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "document_scan").
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
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
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
	case "image_load":
		return s.handleImageLoad(args)
	case "document_locate":
		return s.handleDocumentLocate(args)
	case "document_preprocess":
		return s.handleDocumentPreprocess(ctx, args)
	case "document_scan":
		return s.handleDocumentScan(ctx, args)
	case "document_ocr":
		return s.handleDocumentOCR(ctx, args)
	case "document_search":
		return s.handleDocumentSearch(args)
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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) load(args json.RawMessage, a interface{ path() string }) error {
	if err := json.Unmarshal(args, a); err != nil {
		return err
	}
	if a.path() == "" {
		return errors.New("path is required")
	}
	return nil
}

func (a *pathArgs) path() string { return a.Path }

// === image_load ===

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := s.load(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === document_locate ===

type documentLocateArgs struct {
	pathArgs
	Candidates bool `json:"candidates"`
	Edges      bool `json:"edges"`
}

type locateResult struct {
	Found  bool `json:"found"`
	Width  int  `json:"width"`
	Height int  `json:"height"`

	// Corners are in the order they appear along the outline.
	Corners []geometry.Point `json:"corners,omitempty"`

	// Ordered is top-left, top-right, bottom-right, bottom-left.
	Ordered *geometry.Quad `json:"ordered,omitempty"`

	Candidates []detection.Candidate `json:"candidates,omitempty"`

	// EdgeMap is the Canny edge map the outline was traced on.
	EdgeMap *imaging.EncodedImage `json:"edge_map,omitempty"`
}

func (s *Server) handleDocumentLocate(args json.RawMessage) (interface{}, error) {
	var a documentLocateArgs
	if err := s.load(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	locator := s.pipeline.Locator()
	quad, err := locator.Locate(img)
	if err != nil {
		return nil, err
	}

	res := &locateResult{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	if quad != nil {
		ordered := s.pipeline.Orderer().Order(*quad)
		res.Found = true
		res.Corners = quad.Points()
		res.Ordered = &ordered
	}
	if a.Candidates {
		if res.Candidates, err = locator.Candidates(img); err != nil {
			return nil, err
		}
	}
	if a.Edges {
		edges, err := locator.EdgeMap(img)
		if err != nil {
			return nil, err
		}
		if res.EdgeMap, err = imaging.EncodePNG(edges, s.maxPreview); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === document_preprocess ===

type documentPreprocessArgs struct {
	pathArgs
	SavePath string `json:"save_path"`
}

type preprocessResult struct {
	Outcome pipeline.Outcome `json:"outcome"`
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Quad    *geometry.Quad   `json:"quad,omitempty"`

	// Warning explains a geometry fallback.
	Warning string `json:"warning,omitempty"`

	SavedPath string                `json:"saved_path,omitempty"`
	Preview   *imaging.EncodedImage `json:"preview,omitempty"`
}

func (s *Server) handleDocumentPreprocess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentPreprocessArgs
	if err := s.load(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	pre, err := s.pipeline.Preprocess(ctx, img)
	if err != nil {
		return nil, err
	}

	res := &preprocessResult{
		Outcome: pre.Outcome,
		Width:   pre.Image.Bounds().Dx(),
		Height:  pre.Image.Bounds().Dy(),
		Quad:    pre.Quad,
	}
	if pre.Err != nil {
		res.Warning = pre.Err.Error()
	}

	if a.SavePath != "" {
		if err := imaging.Save(pre.Image, a.SavePath); err != nil {
			return nil, err
		}
		res.SavedPath = a.SavePath
		return res, nil
	}

	if res.Preview, err = imaging.EncodePNG(pre.Image, s.maxPreview); err != nil {
		return nil, err
	}
	return res, nil
}

// === document_scan ===

type documentScanArgs struct {
	pathArgs
	Save *bool `json:"save"`
}

type scanResult struct {
	Source    string           `json:"source"`
	Outcome   pipeline.Outcome `json:"outcome"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Quad      *geometry.Quad   `json:"quad,omitempty"`
	Text      string           `json:"text"`
	OCRStatus ocr.Status       `json:"ocr_status"`
	OCRError  string           `json:"ocr_error,omitempty"`
	ElapsedMS int64            `json:"elapsed_ms"`
	Stored    *storage.Saved   `json:"stored,omitempty"`
}

func (s *Server) handleDocumentScan(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentScanArgs
	if err := s.load(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	doc, err := s.pipeline.Process(ctx, img)
	if err != nil {
		return nil, err
	}

	res := &scanResult{
		Source:    a.Path,
		Outcome:   doc.Preprocess.Outcome,
		Width:     doc.Preprocess.Image.Bounds().Dx(),
		Height:    doc.Preprocess.Image.Bounds().Dy(),
		Quad:      doc.Preprocess.Quad,
		Text:      doc.Text.Text,
		OCRStatus: doc.Text.Status,
		ElapsedMS: doc.Elapsed.Milliseconds(),
	}
	if doc.Text.Err != nil {
		res.OCRError = doc.Text.Err.Error()
	}

	save := a.Save == nil || *a.Save
	if save && s.store != nil {
		saved, err := s.store.Save(storage.Record{
			Source:    a.Path,
			Image:     doc.Preprocess.Image,
			Text:      doc.Text.Text,
			Outcome:   string(doc.Preprocess.Outcome),
			Quad:      doc.Preprocess.Quad,
			OCRStatus: string(doc.Text.Status),
		})
		if err != nil {
			return nil, err
		}
		res.Stored = saved
	}
	return res, nil
}

// === document_ocr ===

type documentOCRArgs struct {
	pathArgs
	Words bool `json:"words"`
}

type ocrResult struct {
	Text   string     `json:"text"`
	Status ocr.Status `json:"status"`
	Error  string     `json:"error,omitempty"`

	Words      []ocr.Word `json:"words,omitempty"`
	WordsError string     `json:"words_error,omitempty"`
}

func (s *Server) handleDocumentOCR(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentOCRArgs
	if err := s.load(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	text := s.pipeline.Recognize(ctx, img)
	res := &ocrResult{Text: text.Text, Status: text.Status}
	if text.Err != nil {
		res.Error = text.Err.Error()
	}

	if a.Words {
		words, err := s.pipeline.Words(ctx, img)
		if err != nil {
			res.WordsError = err.Error()
		} else {
			res.Words = words
		}
	}
	return res, nil
}

// === document_search ===

type documentSearchArgs struct {
	Query   string `json:"query"`
	BaseDir string `json:"base_dir"`
}

type searchResult struct {
	Query   string          `json:"query"`
	BaseDir string          `json:"base_dir"`
	Count   int             `json:"count"`
	Matches []storage.Match `json:"matches"`
}

func (s *Server) handleDocumentSearch(args json.RawMessage) (interface{}, error) {
	var a documentSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	store := s.store
	if a.BaseDir != "" {
		store = storage.NewOS(a.BaseDir, s.logger)
	}
	if store == nil {
		return nil, errNoStore
	}

	matches, err := store.Search(a.Query)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []storage.Match{}
	}
	return &searchResult{
		Query:   a.Query,
		BaseDir: store.BaseDir(),
		Count:   len(matches),
		Matches: matches,
	}, nil
}
