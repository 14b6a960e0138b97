// Package parser is the HTTP client for the docling document parsing
// service: submit a file, receive extracted markdown plus page markers.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// PageMarker locates one page boundary within the extracted markdown.
type PageMarker struct {
	PageNumber int `json:"page_number"`
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// ParseResult is the parsing service's response.
type ParseResult struct {
	Markdown         string       `json:"markdown"`
	PageMarkers      []PageMarker `json:"page_markers"`
	PageCount        int          `json:"page_count"`
	ProcessingTimeMS int          `json:"processing_time_ms"`
}

// Error carries the category and code recorded on the failed job row.
type Error struct {
	Category string
	Code     string
	Message  string
}

func (e *Error) Error() string {
	return e.Message
}

// responseSchema guards against malformed parser responses before anything
// is written to the document row.
const responseSchema = `{
	"type": "object",
	"required": ["markdown", "page_markers", "page_count"],
	"properties": {
		"markdown": {"type": "string"},
		"page_count": {"type": "integer", "minimum": 0},
		"processing_time_ms": {"type": "integer", "minimum": 0},
		"page_markers": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["page_number", "start_index", "end_index"],
				"properties": {
					"page_number": {"type": "integer", "minimum": 1},
					"start_index": {"type": "integer", "minimum": 0},
					"end_index": {"type": "integer", "minimum": 0}
				}
			}
		}
	}
}`

// Config holds parser client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the docling parsing service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	schema     *jsonschema.Schema
	logger     *slog.Logger
}

// NewClient creates a new parser Client instance
func NewClient(cfg *Config, logger *slog.Logger) (*Client, error) {
	schema, err := jsonschema.CompileString("parse_response.json", responseSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile parser response schema: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		schema:     schema,
		logger:     logger,
	}, nil
}

// Parse submits the file to the parsing service. Failures come back as
// *Error with the category/code to record on the job row.
func (c *Client) Parse(ctx context.Context, filename string, content io.Reader) (*ParseResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build parse request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp.StatusCode, raw)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &Error{
			Category: "unknown",
			Code:     "PARSE_BAD_RESPONSE",
			Message:  fmt.Sprintf("parser returned invalid JSON: %s", err),
		}
	}
	if err := c.schema.Validate(decoded); err != nil {
		return nil, &Error{
			Category: "unknown",
			Code:     "PARSE_BAD_RESPONSE",
			Message:  fmt.Sprintf("parser response failed schema validation: %s", err),
		}
	}

	var result ParseResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode parse response: %w", err)
	}

	c.logger.Info("Document parsed",
		slog.String("filename", filename),
		slog.Int("page_count", result.PageCount),
		slog.Duration("round_trip", time.Since(start)),
	)

	return &result, nil
}

// Health checks the parsing service.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("parser health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("parser health check failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) transportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return &Error{
			Category: "timeout",
			Code:     "PARSE_TIMEOUT",
			Message:  err.Error(),
		}
	}
	return &Error{
		Category: "parser_unavailable",
		Code:     "PARSE_UNREACHABLE",
		Message:  err.Error(),
	}
}

func (c *Client) statusError(status int, raw []byte) *Error {
	detail := parseDetail(raw)

	switch {
	case status == http.StatusBadRequest:
		category := "unsupported_format"
		if strings.Contains(strings.ToLower(detail), "corrupt") {
			category = "corrupt_file"
		}
		return &Error{Category: category, Code: fmt.Sprintf("PARSE_%d", status), Message: detail}
	case status == http.StatusRequestEntityTooLarge:
		return &Error{Category: "too_large", Code: fmt.Sprintf("PARSE_%d", status), Message: detail}
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway:
		return &Error{Category: "parser_unavailable", Code: fmt.Sprintf("PARSE_%d", status), Message: detail}
	default:
		return &Error{Category: "unknown", Code: fmt.Sprintf("PARSE_%d", status), Message: detail}
	}
}

func parseDetail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return string(raw)
}
