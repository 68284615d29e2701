// Package baidu drives a PaddleOCR-style layout parsing endpoint and
// exposes the recognised text for image ingestion.
package baidu

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	NAME = "baidu"
)

type Driver struct {
	apiURL string
	token  string
	client *http.Client
}

type Config struct {
	APIURL string `toml:"api_url"`
	Token  string `toml:"token"`
}

type OCRRequest struct {
	File                      string `json:"file"`
	FileType                  int    `json:"fileType"`
	UseDocOrientationClassify bool   `json:"useDocOrientationClassify,omitempty"`
	UseDocUnwarping           bool   `json:"useDocUnwarping,omitempty"`
	UseChartRecognition       bool   `json:"useChartRecognition,omitempty"`
}

type OCRResponse struct {
	Result *OCRResult `json:"result"`
	Error  *OCRError  `json:"error,omitempty"`
}

type OCRResult struct {
	LayoutParsingResults []LayoutParsingResult `json:"layoutParsingResults"`
}

type LayoutParsingResult struct {
	Markdown     MarkdownResult    `json:"markdown"`
	OutputImages map[string]string `json:"outputImages"`
}

type MarkdownResult struct {
	Text   string            `json:"text"`
	Images map[string]string `json:"images"`
}

type OCRError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type OCRProcessResult struct {
	Title        string   `json:"title"`
	MarkdownText string   `json:"markdown_text"`
	Images       []string `json:"images"`
	Model        string   `json:"model"`
}

func New(config Config) *Driver {
	return &Driver{
		apiURL: config.APIURL,
		token:  config.Token,
		client: &http.Client{},
	}
}

// RecognizeText runs OCR over raw file bytes and returns the combined
// recognised text. This is the method the image extractor consumes.
func (d *Driver) RecognizeText(ctx context.Context, fileData []byte) (string, error) {
	result, err := d.ProcessOCR(ctx, fileData)
	if err != nil {
		return "", err
	}
	return result.MarkdownText, nil
}

// ProcessOCR recognises a PDF or image, detecting which of the two the
// payload is from its magic bytes.
func (d *Driver) ProcessOCR(ctx context.Context, fileData []byte) (*OCRProcessResult, error) {
	var fileType int
	switch detectFileType(fileData) {
	case "pdf":
		fileType = 0
	case "image":
		fileType = 1
	default:
		return nil, fmt.Errorf("unsupported file type for OCR")
	}

	return d.processOCRInternal(ctx, fileData, fileType)
}

func (d *Driver) processOCRInternal(ctx context.Context, fileData []byte, fileType int) (*OCRProcessResult, error) {
	slog.Debug("Processing OCR", slog.String("driver", NAME))

	ocrReq := OCRRequest{
		File:     base64.StdEncoding.EncodeToString(fileData),
		FileType: fileType,
	}

	reqBody, err := json.Marshal(ocrReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("token %s", d.token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var ocrResp OCRResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if ocrResp.Error != nil {
		return nil, fmt.Errorf("OCR API error: %s (code: %d)", ocrResp.Error.Message, ocrResp.Error.Code)
	}
	if ocrResp.Result == nil || len(ocrResp.Result.LayoutParsingResults) == 0 {
		return nil, fmt.Errorf("no OCR results returned")
	}

	return &OCRProcessResult{
		Title:        extractTitle(ocrResp.Result.LayoutParsingResults),
		MarkdownText: combineMarkdownText(ocrResp.Result.LayoutParsingResults),
		Images:       extractImageURLs(ocrResp.Result.LayoutParsingResults),
		Model:        NAME,
	}, nil
}

// extractTitle uses the opening of the first page as a display title.
func extractTitle(results []LayoutParsingResult) string {
	if len(results) == 0 {
		return "OCR Document"
	}

	text := []rune(results[0].Markdown.Text)
	if len(text) > 50 {
		return string(text[:50]) + "..."
	}
	return string(text)
}

func combineMarkdownText(results []LayoutParsingResult) string {
	var sb bytes.Buffer
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		sb.WriteString(result.Markdown.Text)
	}
	return sb.String()
}

func extractImageURLs(results []LayoutParsingResult) []string {
	var urls []string
	for _, result := range results {
		for _, url := range result.Markdown.Images {
			urls = append(urls, url)
		}
		for _, url := range result.OutputImages {
			urls = append(urls, url)
		}
	}
	return urls
}

// detectFileType sniffs the payload's magic bytes; only PDF and the
// common raster image formats are recognised.
func detectFileType(data []byte) string {
	if len(data) >= 4 && string(data[:4]) == "%PDF" {
		return "pdf"
	}

	switch {
	case len(data) >= 8 &&
		data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A:
		return "image" // PNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image" // JPEG
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return "image" // GIF
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image" // WEBP
	case len(data) >= 2 && data[0] == 0x42 && data[1] == 0x4D:
		return "image" // BMP
	default:
		return "unknown"
	}
}
