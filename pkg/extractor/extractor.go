// Package extractor turns raw file bytes into normalized documents the
// ingestion pipeline can chunk and embed. Extraction never fails
// outright: anything unreadable degrades to a typed placeholder so the
// caller always has something to record.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

// DefaultMaxArchiveEntries bounds how many archive members one upload
// can push through the pipeline.
const DefaultMaxArchiveEntries = 200

// DefaultMaxSheetRows caps the flattened row count per spreadsheet sheet.
const DefaultMaxSheetRows = 5000

// maxArchiveDepth stops archive-in-archive recursion before a crafted
// file can nest forever.
const maxArchiveDepth = 2

// OCRDriver recognizes text in image bytes. Recognition failure is
// non-fatal for extraction.
type OCRDriver interface {
	RecognizeText(ctx context.Context, fileData []byte) (string, error)
}

type Extractor struct {
	ocr               OCRDriver
	maxArchiveEntries int
	maxSheetRows      int
}

type Option func(*Extractor)

func WithOCR(driver OCRDriver) Option {
	return func(e *Extractor) {
		e.ocr = driver
	}
}

func WithMaxArchiveEntries(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxArchiveEntries = n
		}
	}
}

func WithMaxSheetRows(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxSheetRows = n
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		maxArchiveEntries: DefaultMaxArchiveEntries,
		maxSheetRows:      DefaultMaxSheetRows,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var structuredTextExts = map[string]bool{
	".md": true, ".markdown": true, ".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".xml": true, ".html": true, ".htm": true,
}

var sourceCodeExts = map[string]string{
	".go": "go", ".py": "python", ".js": "javascript", ".ts": "typescript",
	".jsx": "javascript", ".tsx": "typescript", ".java": "java", ".c": "c",
	".h": "c", ".cpp": "cpp", ".hpp": "cpp", ".cs": "csharp", ".rb": "ruby",
	".rs": "rust", ".php": "php", ".swift": "swift", ".kt": "kotlin",
	".sh": "shell", ".bash": "shell", ".sql": "sql", ".lua": "lua",
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".webp": true,
}

var archiveExts = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".tgz": true,
}

var plainTextExts = map[string]bool{
	".txt": true, ".text": true, ".log": true, ".conf": true, ".ini": true, ".env": true,
}

// Extract routes on the file extension alone and always returns a
// document, falling back to a typed placeholder when the content cannot
// be decoded.
func (e *Extractor) Extract(ctx context.Context, data []byte, originalName string) *types.ExtractedDocument {
	return e.extract(ctx, data, originalName, 0)
}

func (e *Extractor) extract(ctx context.Context, data []byte, originalName string, depth int) *types.ExtractedDocument {
	ext := strings.ToLower(filepath.Ext(originalName))

	switch {
	case structuredTextExts[ext]:
		return e.extractStructuredText(data, originalName, ext)
	case ext == ".docx":
		return e.extractDocx(data, originalName)
	case ext == ".pdf":
		return placeholderDocument(originalName, types.FILE_TYPE_RICH_DOCUMENT,
			"PDF document; no text layer could be extracted")
	case ext == ".xlsx":
		return e.extractXlsx(data, originalName)
	case ext == ".csv":
		return e.extractCSV(data, originalName)
	case archiveExts[ext] && isArchiveName(originalName):
		return e.extractArchive(ctx, data, originalName, depth)
	case imageExts[ext]:
		return e.extractImage(ctx, data, originalName)
	case sourceCodeExts[ext] != "":
		return e.extractSourceCode(data, originalName, ext)
	case plainTextExts[ext]:
		return e.extractPlainText(data, originalName)
	default:
		return e.extractFallback(data, originalName)
	}
}

// isArchiveName keeps bare .gz files (for example app.log.gz) out of
// the archive walker unless they wrap a tarball.
func isArchiveName(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".gz") {
		return strings.HasSuffix(lower, ".tar.gz")
	}
	return true
}

func placeholderDocument(originalName string, fileType types.FileType, message string) *types.ExtractedDocument {
	return &types.ExtractedDocument{
		Title:       types.CleanFileTitle(filepath.Base(originalName)),
		Description: message,
		Text:        message,
		FileType:    fileType,
		Metadata: map[string]string{
			"filename": filepath.Base(originalName),
		},
	}
}

// describe builds a one-line preview for listings out of the first
// meaningful characters of the extracted text.
func describe(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func baseMetadata(originalName, ext string) map[string]string {
	return map[string]string{
		"filename":  filepath.Base(originalName),
		"extension": strings.TrimPrefix(ext, "."),
	}
}

func textSizeNote(name string, size int) string {
	return fmt.Sprintf("%s (%d bytes)", filepath.Base(name), size)
}
