package baidu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x01}

func TestNew(t *testing.T) {
	config := Config{
		APIURL: "http://ocr.local/layout-parsing",
		Token:  "secret",
	}

	driver := New(config)

	assert.NotNil(t, driver)
	assert.Equal(t, config.APIURL, driver.apiURL)
	assert.Equal(t, config.Token, driver.token)
	assert.NotNil(t, driver.client)
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{name: "pdf", data: []byte("%PDF-1.7 rest"), expected: "pdf"},
		{name: "png", data: pngHeader, expected: "image"},
		{name: "jpeg", data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, expected: "image"},
		{name: "gif", data: []byte("GIF89a...."), expected: "image"},
		{name: "bmp", data: []byte{0x42, 0x4D, 0x00}, expected: "image"},
		{name: "text", data: []byte("hello world"), expected: "unknown"},
		{name: "empty", data: nil, expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectFileType(tt.data))
		})
	}
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "OCR Document", extractTitle(nil))

	short := []LayoutParsingResult{{Markdown: MarkdownResult{Text: "Hello World"}}}
	assert.Equal(t, "Hello World", extractTitle(short))

	long := []LayoutParsingResult{{Markdown: MarkdownResult{
		Text: "This is a very long text that should be truncated because it exceeds fifty characters",
	}}}
	got := extractTitle(long)
	assert.Len(t, []rune(got), 53)
	assert.Contains(t, got, "...")
}

func TestCombineMarkdownText(t *testing.T) {
	results := []LayoutParsingResult{
		{Markdown: MarkdownResult{Text: "page one"}},
		{Markdown: MarkdownResult{Text: "page two"}},
	}
	assert.Equal(t, "page one\n\n---\n\npage two", combineMarkdownText(results))
}

func TestRecognizeText(t *testing.T) {
	var gotReq OCRRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		json.NewEncoder(w).Encode(OCRResponse{
			Result: &OCRResult{
				LayoutParsingResults: []LayoutParsingResult{
					{Markdown: MarkdownResult{Text: "recognised text"}},
				},
			},
		})
	}))
	defer server.Close()

	driver := New(Config{APIURL: server.URL, Token: "secret"})

	text, err := driver.RecognizeText(context.Background(), pngHeader)
	assert.NoError(t, err)
	assert.Equal(t, "recognised text", text)
	// PNG payloads go up as images, not PDFs.
	assert.Equal(t, 1, gotReq.FileType)
	assert.NotEmpty(t, gotReq.File)
}

func TestRecognizeTextAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OCRResponse{
			Error: &OCRError{Code: 401, Message: "bad token"},
		})
	}))
	defer server.Close()

	driver := New(Config{APIURL: server.URL, Token: "wrong"})

	_, err := driver.RecognizeText(context.Background(), pngHeader)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad token")
}

func TestRecognizeTextUnsupportedPayload(t *testing.T) {
	driver := New(Config{APIURL: "http://unused.local", Token: "t"})

	_, err := driver.RecognizeText(context.Background(), []byte("plain text bytes"))
	assert.Error(t, err)
}
