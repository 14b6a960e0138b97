package parser

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{BaseURL: server.URL, Timeout: 5 * time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func TestParseSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/parse", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "policy.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"markdown": "--- PAGE 1 ---\n# Policy",
			"page_markers": [{"page_number": 1, "start_index": 0, "end_index": 24}],
			"page_count": 1,
			"processing_time_ms": 812
		}`))
	})

	result, err := client.Parse(context.Background(), "policy.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	assert.Contains(t, result.Markdown, "--- PAGE 1 ---")
	assert.Equal(t, 1, result.PageCount)
	require.Len(t, result.PageMarkers, 1)
	assert.Equal(t, 1, result.PageMarkers[0].PageNumber)
}

func TestParseErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantCategory string
		wantCode     string
	}{
		{
			name:         "unsupported file type",
			status:       http.StatusBadRequest,
			body:         `{"detail": "Unsupported file type: .pages"}`,
			wantCategory: "unsupported_format",
			wantCode:     "PARSE_400",
		},
		{
			name:         "corrupt file",
			status:       http.StatusBadRequest,
			body:         `{"detail": "Corrupt PDF: bad xref"}`,
			wantCategory: "corrupt_file",
			wantCode:     "PARSE_400",
		},
		{
			name:         "payload too large",
			status:       http.StatusRequestEntityTooLarge,
			body:         `{"detail": "file exceeds 50MB"}`,
			wantCategory: "too_large",
			wantCode:     "PARSE_413",
		},
		{
			name:         "service unavailable",
			status:       http.StatusServiceUnavailable,
			body:         `{"detail": "Service not initialized"}`,
			wantCategory: "parser_unavailable",
			wantCode:     "PARSE_503",
		},
		{
			name:         "internal parser failure",
			status:       http.StatusInternalServerError,
			body:         `{"detail": "Document parsing failed: segfault"}`,
			wantCategory: "unknown",
			wantCode:     "PARSE_500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Parse(context.Background(), "doc.pdf", strings.NewReader("x"))
			require.Error(t, err)

			var parseErr *Error
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.wantCategory, parseErr.Category)
			assert.Equal(t, tt.wantCode, parseErr.Code)
			assert.NotEmpty(t, parseErr.Message)
		})
	}
}

func TestParseRejectsMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>bad gateway</html>`},
		{name: "missing markdown", body: `{"page_markers": [], "page_count": 0}`},
		{name: "wrong page marker shape", body: `{"markdown": "x", "page_markers": [{"page_number": "one"}], "page_count": 1}`},
		{name: "negative page count", body: `{"markdown": "x", "page_markers": [], "page_count": -2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.Parse(context.Background(), "doc.pdf", strings.NewReader("x"))
			require.Error(t, err)

			var parseErr *Error
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "PARSE_BAD_RESPONSE", parseErr.Code)
		})
	}
}

func TestParseUnreachableService(t *testing.T) {
	client, err := NewClient(&Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = client.Parse(context.Background(), "doc.pdf", strings.NewReader("x"))
	require.Error(t, err)

	var parseErr *Error
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "parser_unavailable", parseErr.Category)
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Write([]byte(`{"status": "ok", "version": "1.0.0"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, client.Health(context.Background()))
}
