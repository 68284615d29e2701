package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

// wordDocumentXML mirrors the parts of word/document.xml we read.
type wordDocumentXML struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
	} `xml:"body"`
}

type wordParagraph struct {
	Runs []struct {
		Text []struct {
			Content string `xml:",chardata"`
		} `xml:"t"`
	} `xml:"r"`
}

type docPropsCoreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

func (e *Extractor) extractDocx(data []byte, originalName string) *types.ExtractedDocument {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return placeholderDocument(originalName, types.FILE_TYPE_RICH_DOCUMENT,
			"unreadable docx container: "+err.Error())
	}

	text := docxBodyText(reader)
	if text == "" {
		return placeholderDocument(originalName, types.FILE_TYPE_RICH_DOCUMENT,
			"docx document contains no extractable text")
	}

	title, creator := docxProps(reader)
	if title == "" {
		title = types.CleanFileTitle(filepath.Base(originalName))
	}

	meta := baseMetadata(originalName, ".docx")
	if creator != "" {
		meta["creator"] = creator
	}

	return &types.ExtractedDocument{
		Title:       title,
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_RICH_DOCUMENT,
		Metadata:    meta,
	}
}

func docxBodyText(reader *zip.Reader) string {
	raw := readZipEntry(reader, "word/document.xml")
	if raw == nil {
		return ""
	}

	var doc wordDocumentXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return ""
	}

	var sb strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func docxProps(reader *zip.Reader) (title, creator string) {
	raw := readZipEntry(reader, "docProps/core.xml")
	if raw == nil {
		return "", ""
	}

	var core docPropsCoreXML
	if err := xml.Unmarshal(raw, &core); err != nil {
		return "", ""
	}
	return strings.TrimSpace(core.Title), strings.TrimSpace(core.Creator)
}

func readZipEntry(reader *zip.Reader, name string) []byte {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil
		}
		return raw
	}
	return nil
}
