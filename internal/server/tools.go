package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image information
		{
			Name:        "image_load",
			Description: "Load a photo and return its dimensions, format, orientation and size. The decoded photo is cached for subsequent calls until the file changes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Document geometry
		{
			Name:        "document_locate",
			Description: "Find the outline of a paper document in a photo. Returns the four corners in contour order and in canonical order (top-left, top-right, bottom-right, bottom-left), or found=false.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"candidates": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return every ranked contour with the reason it was rejected",
						"default":     false,
					},
					"edges": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the edge map the outline was traced on, as base64 PNG",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_preprocess",
			Description: "Locate the document in a photo, correct its perspective and binarize it. Returns the page as base64 PNG preview or writes it to save_path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"save_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional output file. The extension selects the format. When set, no preview is returned.",
					},
				},
				"required": []string{"path"},
			},
		},

		// Text
		{
			Name:        "document_scan",
			Description: "Preprocess a photo and extract its text with OCR. Optionally stores the page, text and metadata in the document store.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"save": map[string]interface{}{
						"type":        "boolean",
						"description": "Store the scanned page and text (default true when a store is configured)",
						"default":     true,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_ocr",
			Description: "Extract text from an image that is already a clean page, without locating or binarizing it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"words": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return each word with its bounding box and confidence (0-1)",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_search",
			Description: "Search the text of stored documents, ignoring case. Returns matching files with 30 characters of context around the first match.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Text to search for",
					},
					"base_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to search instead of the configured store",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
