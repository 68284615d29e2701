package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

func TestExtract_PlainText(t *testing.T) {
	e := New()
	doc := e.Extract(context.Background(), []byte("hello world\r\nsecond line\n"), "release_notes.txt")

	if doc.FileType != types.FILE_TYPE_PLAIN_TEXT {
		t.Fatalf("fileType = %s, want plain-text", doc.FileType)
	}
	if doc.Title != "release notes" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Text != "hello world\nsecond line" {
		t.Errorf("text = %q", doc.Text)
	}
	if doc.Description == "" {
		t.Error("description should not be empty")
	}
}

func TestExtract_MarkdownTitleFromHeading(t *testing.T) {
	e := New()
	doc := e.Extract(context.Background(), []byte("# Deployment Guide\n\nSome body text."), "guide-v2.md")

	if doc.FileType != types.FILE_TYPE_STRUCTURED_TEXT {
		t.Fatalf("fileType = %s, want structured-text", doc.FileType)
	}
	if doc.Title != "Deployment Guide" {
		t.Errorf("title = %q, want heading text", doc.Title)
	}
}

func TestExtract_HTMLStripsTags(t *testing.T) {
	e := New()
	html := `<html><head><style>body{color:red}</style></head><body><h1>Hi</h1><p>content here</p></body></html>`
	doc := e.Extract(context.Background(), []byte(html), "page.html")

	if strings.Contains(doc.Text, "<") || strings.Contains(doc.Text, "color:red") {
		t.Errorf("tags not stripped: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "content here") {
		t.Errorf("body text lost: %q", doc.Text)
	}
}

func TestExtract_SourceCode(t *testing.T) {
	e := New()
	doc := e.Extract(context.Background(), []byte("package main\n\nfunc main() {}\n"), "main.go")

	if doc.FileType != types.FILE_TYPE_SOURCE_CODE {
		t.Fatalf("fileType = %s, want source-code", doc.FileType)
	}
	if doc.Metadata["language"] != "go" {
		t.Errorf("language = %q, want go", doc.Metadata["language"])
	}
	if doc.Title != "main.go" {
		t.Errorf("title = %q, source files keep their full name", doc.Title)
	}
}

func TestExtract_BinaryFallback(t *testing.T) {
	e := New()
	doc := e.Extract(context.Background(), []byte{0x7f, 0x45, 0x4c, 0x46, 0x00, 0x01, 0x02}, "mystery.dat")

	if doc == nil {
		t.Fatal("extract must never return nil")
	}
	if doc.FileType != types.FILE_TYPE_UNKNOWN {
		t.Fatalf("fileType = %s, want unknown", doc.FileType)
	}
	if doc.Text == "" {
		t.Error("placeholder text should describe the failure")
	}
}

func TestExtract_PDFPlaceholder(t *testing.T) {
	e := New()
	doc := e.Extract(context.Background(), []byte("%PDF-1.4 ..."), "paper.pdf")

	if doc.FileType != types.FILE_TYPE_RICH_DOCUMENT {
		t.Fatalf("fileType = %s, want rich-document", doc.FileType)
	}
	if doc.Text == "" {
		t.Error("placeholder text expected")
	}
}

func TestExtract_CSV(t *testing.T) {
	e := New()
	csvData := "Name,Age\nAlice,30\nBob,25\n"
	doc := e.Extract(context.Background(), []byte(csvData), "people.csv")

	if doc.FileType != types.FILE_TYPE_SPREADSHEET {
		t.Fatalf("fileType = %s, want spreadsheet", doc.FileType)
	}
	if !strings.Contains(doc.Text, "Row 1: Name=Alice, Age=30") {
		t.Errorf("flattened text missing row 1: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Row 2: Name=Bob, Age=25") {
		t.Errorf("flattened text missing row 2: %q", doc.Text)
	}
}

func TestExtract_CSVTruncation(t *testing.T) {
	e := New(WithMaxSheetRows(2))

	var sb strings.Builder
	sb.WriteString("ID,Value\n")
	for i := 0; i < 10; i++ {
		sb.WriteString(fmt.Sprintf("%d,v%d\n", i, i))
	}
	doc := e.Extract(context.Background(), []byte(sb.String()), "big.csv")

	if !strings.Contains(doc.Text, "truncated") {
		t.Errorf("expected truncation marker in %q", doc.Text)
	}
	if strings.Contains(doc.Text, "Row 3:") {
		t.Errorf("rows past the cap should not be rendered: %q", doc.Text)
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_Docx(t *testing.T) {
	documentXML := `<?xml version="1.0"?>
<document xmlns="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph.</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
  </body>
</document>`
	coreXML := `<?xml version="1.0"?>
<coreProperties><title>Quarterly Report</title><creator>ops</creator></coreProperties>`

	data := buildZip(t, map[string]string{
		"word/document.xml":   documentXML,
		"docProps/core.xml":   coreXML,
		"[Content_Types].xml": `<Types/>`,
	})

	e := New()
	doc := e.Extract(context.Background(), data, "report.docx")

	if doc.FileType != types.FILE_TYPE_RICH_DOCUMENT {
		t.Fatalf("fileType = %s, want rich-document", doc.FileType)
	}
	if doc.Title != "Quarterly Report" {
		t.Errorf("title = %q, want docProps title", doc.Title)
	}
	if !strings.Contains(doc.Text, "First paragraph.") || !strings.Contains(doc.Text, "Second paragraph.") {
		t.Errorf("body text = %q", doc.Text)
	}
	if doc.Metadata["creator"] != "ops" {
		t.Errorf("creator = %q", doc.Metadata["creator"])
	}
}

func TestExtract_Xlsx(t *testing.T) {
	sharedStrings := `<?xml version="1.0"?>
<sst><si><t>Name</t></si><si><t>Alice</t></si><si><t>Bob</t></si></sst>`
	workbook := `<?xml version="1.0"?>
<workbook><sheets><sheet name="People" sheetId="1"/></sheets></workbook>`
	sheet := `<?xml version="1.0"?>
<worksheet><sheetData>
  <row><c r="A1" t="s"><v>0</v></c><c r="B1"><v>Age</v></c></row>
  <row><c r="A2" t="s"><v>1</v></c><c r="B2"><v>30</v></c></row>
  <row><c r="A3" t="s"><v>2</v></c><c r="B3"><v>25</v></c></row>
</sheetData></worksheet>`

	data := buildZip(t, map[string]string{
		"xl/sharedStrings.xml":     sharedStrings,
		"xl/workbook.xml":          workbook,
		"xl/worksheets/sheet1.xml": sheet,
	})

	e := New()
	doc := e.Extract(context.Background(), data, "people.xlsx")

	if doc.FileType != types.FILE_TYPE_SPREADSHEET {
		t.Fatalf("fileType = %s, want spreadsheet", doc.FileType)
	}
	if !strings.Contains(doc.Text, "# Sheet: People") {
		t.Errorf("sheet name missing: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Row 1: Name=Alice, Age=30") {
		t.Errorf("flattened row missing: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Row 2: Name=Bob, Age=25") {
		t.Errorf("flattened row missing: %q", doc.Text)
	}
}

func TestExtract_Archive(t *testing.T) {
	data := buildZip(t, map[string]string{
		"docs/readme.md": "# Readme\n\n" + strings.Repeat("docs ", 20),
		"src/main.go":    "package main\n",
		"bin/tool.exe":   "\x00\x01\x02",
	})

	e := New()
	doc := e.Extract(context.Background(), data, "bundle.zip")

	if doc.FileType != types.FILE_TYPE_ARCHIVE {
		t.Fatalf("fileType = %s, want archive", doc.FileType)
	}
	if len(doc.SubDocuments) != 2 {
		t.Fatalf("subDocuments = %d, want 2 (exe skipped)", len(doc.SubDocuments))
	}
	if !strings.Contains(doc.Text, "bin/tool.exe [skipped: binary]") {
		t.Errorf("skip marker missing: %q", doc.Text)
	}

	for _, sub := range doc.SubDocuments {
		if sub.Metadata["archive_entry"] == "" {
			t.Errorf("sub-document %q missing archive_entry metadata", sub.Title)
		}
	}

	flat := doc.FlattenText()
	if !strings.Contains(flat, "docs ") || !strings.Contains(flat, "package main") {
		t.Error("flattened text should include sub-document bodies")
	}
}

func TestExtract_ArchiveEntryCap(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("f%d.txt", i)] = strings.Repeat("x", 80)
	}
	data := buildZip(t, files)

	e := New(WithMaxArchiveEntries(2))
	doc := e.Extract(context.Background(), data, "many.zip")

	if len(doc.SubDocuments) != 2 {
		t.Fatalf("subDocuments = %d, want cap of 2", len(doc.SubDocuments))
	}
	if !strings.Contains(doc.Text, "[archive truncated: 5 entries, processed first 2]") {
		t.Errorf("truncation marker missing: %q", doc.Text)
	}
}

func TestExtract_CorruptArchive(t *testing.T) {
	e := New()
	doc := e.Extract(context.Background(), []byte("this is not a zip"), "broken.zip")

	if doc.FileType != types.FILE_TYPE_ARCHIVE {
		t.Fatalf("fileType = %s, want archive", doc.FileType)
	}
	if !strings.Contains(doc.Text, "unreadable archive") {
		t.Errorf("placeholder text = %q", doc.Text)
	}
}

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) RecognizeText(ctx context.Context, fileData []byte) (string, error) {
	return f.text, f.err
}

func TestExtract_ImageWithOCR(t *testing.T) {
	e := New(WithOCR(&fakeOCR{text: "scanned invoice total 42"}))
	doc := e.Extract(context.Background(), []byte("fakepng"), "invoice.png")

	if doc.FileType != types.FILE_TYPE_IMAGE {
		t.Fatalf("fileType = %s, want image", doc.FileType)
	}
	if doc.Text != "scanned invoice total 42" {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestExtract_ImageOCRFailureNonFatal(t *testing.T) {
	e := New(WithOCR(&fakeOCR{err: errors.New("service down")}))
	doc := e.Extract(context.Background(), []byte("fakepng"), "photo.jpg")

	if doc == nil {
		t.Fatal("extract must never return nil")
	}
	if !strings.Contains(doc.Text, "no machine-readable text") {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestExtract_ImageWithoutOCR(t *testing.T) {
	e := New()
	doc := e.Extract(context.Background(), []byte("fakepng"), "photo.jpg")

	if !strings.Contains(doc.Text, "no machine-readable text") {
		t.Errorf("text = %q", doc.Text)
	}
}
