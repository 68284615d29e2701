package extractor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

const ocrTimeout = time.Minute

// extractImage runs optical recognition when a driver is configured.
// Recognition failure is non-fatal: the image still yields a document
// stating that no machine-readable text was found.
func (e *Extractor) extractImage(ctx context.Context, data []byte, originalName string) *types.ExtractedDocument {
	ext := strings.ToLower(filepath.Ext(originalName))

	if e.ocr == nil {
		return placeholderDocument(originalName, types.FILE_TYPE_IMAGE,
			"image file; no machine-readable text (recognition not configured)")
	}

	ctx, cancel := context.WithTimeout(ctx, ocrTimeout)
	defer cancel()

	text, err := e.ocr.RecognizeText(ctx, data)
	if err != nil || strings.TrimSpace(text) == "" {
		return placeholderDocument(originalName, types.FILE_TYPE_IMAGE,
			"image file; no machine-readable text")
	}

	text = normalizeText(text)
	meta := baseMetadata(originalName, ext)
	meta["recognized"] = "true"

	return &types.ExtractedDocument{
		Title:       types.CleanFileTitle(filepath.Base(originalName)),
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_IMAGE,
		Metadata:    meta,
	}
}
