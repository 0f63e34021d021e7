// Package server implements the MCP (Model Context Protocol) server for the
// document scanner.
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
//   - image_load: Load a photo and get its metadata
//   - document_locate: Find the document outline in a photo
//   - document_preprocess: Rectify and binarize the document
//   - document_scan: Preprocess, recognize text and store the result
//   - document_ocr: Recognize text on an already clean page
//   - document_search: Search the text of stored documents
//
// # Image Caching
//
// Decoded photos are kept in a small LRU cache keyed by absolute path, so
// consecutive tool calls on one photo decode it once. An entry is dropped
// when the file's size or modification time changes.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. A failed text recognition is not
// a tool error: document_scan and document_ocr report it in their
// ocr_status field.
//
// Logs go to stderr so they never mix with protocol output.
package server
