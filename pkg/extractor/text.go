package extractor

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)
	markdownH1Pattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

func (e *Extractor) extractStructuredText(data []byte, originalName, ext string) *types.ExtractedDocument {
	if looksBinary(data) {
		return placeholderDocument(originalName, types.FILE_TYPE_UNKNOWN,
			"file is not valid text: "+textSizeNote(originalName, len(data)))
	}

	text := normalizeText(string(data))
	title := types.CleanFileTitle(filepath.Base(originalName))

	switch ext {
	case ".html", ".htm":
		text = strings.TrimSpace(htmlTagPattern.ReplaceAllString(text, " "))
	case ".md", ".markdown":
		// a leading heading is a better title than the filename
		if m := markdownH1Pattern.FindStringSubmatch(text); m != nil {
			title = strings.TrimSpace(m[1])
		}
	}

	return &types.ExtractedDocument{
		Title:       title,
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_STRUCTURED_TEXT,
		Metadata:    baseMetadata(originalName, ext),
	}
}

func (e *Extractor) extractSourceCode(data []byte, originalName, ext string) *types.ExtractedDocument {
	if looksBinary(data) {
		return placeholderDocument(originalName, types.FILE_TYPE_UNKNOWN,
			"file is not valid text: "+textSizeNote(originalName, len(data)))
	}

	text := normalizeText(string(data))
	meta := baseMetadata(originalName, ext)
	meta["language"] = sourceCodeExts[ext]

	return &types.ExtractedDocument{
		Title:       filepath.Base(originalName),
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_SOURCE_CODE,
		Metadata:    meta,
	}
}

func (e *Extractor) extractPlainText(data []byte, originalName string) *types.ExtractedDocument {
	if looksBinary(data) {
		return placeholderDocument(originalName, types.FILE_TYPE_UNKNOWN,
			"file is not valid text: "+textSizeNote(originalName, len(data)))
	}

	text := normalizeText(string(data))
	return &types.ExtractedDocument{
		Title:       types.CleanFileTitle(filepath.Base(originalName)),
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_PLAIN_TEXT,
		Metadata:    baseMetadata(originalName, strings.ToLower(filepath.Ext(originalName))),
	}
}

// extractFallback handles unknown extensions by attempting a plain text
// decode before giving up with a typed placeholder.
func (e *Extractor) extractFallback(data []byte, originalName string) *types.ExtractedDocument {
	if looksBinary(data) {
		return placeholderDocument(originalName, types.FILE_TYPE_UNKNOWN,
			"unsupported binary file: "+textSizeNote(originalName, len(data)))
	}

	text := normalizeText(string(data))
	return &types.ExtractedDocument{
		Title:       types.CleanFileTitle(filepath.Base(originalName)),
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_UNKNOWN,
		Metadata:    baseMetadata(originalName, strings.ToLower(filepath.Ext(originalName))),
	}
}

// looksBinary applies the classic NUL-byte probe over the head of the
// file plus a UTF-8 validity check.
func looksBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
