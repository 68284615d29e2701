package types

import (
	"strings"
	"time"
)

// SourceFile describes one file picked up from the watched directory.
// It only lives for a single pipeline run.
type SourceFile struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

type FileType string

const (
	FILE_TYPE_STRUCTURED_TEXT FileType = "structured-text"
	FILE_TYPE_RICH_DOCUMENT   FileType = "rich-document"
	FILE_TYPE_SPREADSHEET     FileType = "spreadsheet"
	FILE_TYPE_ARCHIVE         FileType = "archive"
	FILE_TYPE_IMAGE           FileType = "image"
	FILE_TYPE_SOURCE_CODE     FileType = "source-code"
	FILE_TYPE_PLAIN_TEXT      FileType = "plain-text"
	FILE_TYPE_UNKNOWN         FileType = "unknown"
)

func (t FileType) String() string {
	return string(t)
}

// ExtractedDocument is the normalized output of content extraction.
// Archives produce a summary document whose SubDocuments hold the
// flattened per-entry results.
type ExtractedDocument struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Text         string              `json:"text"`
	FileType     FileType            `json:"file_type"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	SubDocuments []ExtractedDocument `json:"sub_documents,omitempty"`
}

// FlattenText folds an extraction tree into one chunkable text body:
// the document's own text followed by every sub-document, each under a
// heading so chunk boundaries keep entry context nearby.
func (d ExtractedDocument) FlattenText() string {
	if len(d.SubDocuments) == 0 {
		return d.Text
	}

	var sb strings.Builder
	sb.WriteString(d.Text)
	for _, sub := range d.SubDocuments {
		flat := sub.FlattenText()
		if strings.TrimSpace(flat) == "" {
			continue
		}
		sb.WriteString("\n\n")
		if sub.Title != "" {
			sb.WriteString("## " + sub.Title + "\n\n")
		}
		sb.WriteString(flat)
	}
	return sb.String()
}

// CleanFileTitle turns a file name into a human readable title.
func CleanFileTitle(filename string) string {
	name := filename
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
