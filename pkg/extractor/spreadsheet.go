package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

type workbookXML struct {
	Sheets struct {
		Sheet []struct {
			Name string `xml:"name,attr"`
		} `xml:"sheet"`
	} `xml:"sheets"`
}

type sharedStringsXML struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type worksheetXML struct {
	Rows []struct {
		Cells []worksheetCell `xml:"c"`
	} `xml:"sheetData>row"`
}

type worksheetCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline struct {
		T string `xml:"t"`
	} `xml:"is"`
}

// extractXlsx reads the OOXML container directly: shared strings, the
// workbook sheet list, then each worksheet's cell grid flattened to
// one "Row N: col=val" line per row.
func (e *Extractor) extractXlsx(data []byte, originalName string) *types.ExtractedDocument {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return placeholderDocument(originalName, types.FILE_TYPE_SPREADSHEET,
			"unreadable xlsx container: "+err.Error())
	}

	shared := parseSharedStrings(reader)
	sheetNames := parseSheetNames(reader)

	type sheetFile struct {
		order int
		name  string
	}
	var files []sheetFile
	for _, f := range reader.File {
		var n int
		if _, err := fmt.Sscanf(f.Name, "xl/worksheets/sheet%d.xml", &n); err == nil {
			files = append(files, sheetFile{order: n, name: f.Name})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].order < files[j].order })

	if len(files) == 0 {
		return placeholderDocument(originalName, types.FILE_TYPE_SPREADSHEET,
			"xlsx file contains no worksheets")
	}

	var sb strings.Builder
	totalRows := 0
	for i, f := range files {
		sheetName := fmt.Sprintf("Sheet %d", i+1)
		if i < len(sheetNames) && sheetNames[i] != "" {
			sheetName = sheetNames[i]
		}

		raw := readZipEntry(reader, f.name)
		if raw == nil {
			continue
		}
		var sheet worksheetXML
		if err := xml.Unmarshal(raw, &sheet); err != nil {
			continue
		}

		grid := make([][2][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			var cols, vals []string
			for _, cell := range row.Cells {
				cols = append(cols, columnLetter(cell.Ref))
				vals = append(vals, cellValue(cell, shared))
			}
			grid = append(grid, [2][]string{cols, vals})
		}

		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("# Sheet: " + sheetName + "\n")
		totalRows += flattenGrid(&sb, grid, e.maxSheetRows)
	}

	text := strings.TrimSpace(sb.String())
	meta := baseMetadata(originalName, ".xlsx")
	meta["sheets"] = strconv.Itoa(len(files))
	meta["rows"] = strconv.Itoa(totalRows)

	return &types.ExtractedDocument{
		Title:       types.CleanFileTitle(filepath.Base(originalName)),
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_SPREADSHEET,
		Metadata:    meta,
	}
}

func (e *Extractor) extractCSV(data []byte, originalName string) *types.ExtractedDocument {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return placeholderDocument(originalName, types.FILE_TYPE_SPREADSHEET,
			"unreadable csv file: "+err.Error())
	}

	grid := make([][2][]string, 0, len(records))
	for _, record := range records {
		cols := make([]string, len(record))
		for i := range record {
			cols[i] = numberedColumn(i)
		}
		grid = append(grid, [2][]string{cols, record})
	}

	var sb strings.Builder
	rows := flattenGrid(&sb, grid, e.maxSheetRows)
	text := strings.TrimSpace(sb.String())

	meta := baseMetadata(originalName, ".csv")
	meta["rows"] = strconv.Itoa(rows)

	return &types.ExtractedDocument{
		Title:       types.CleanFileTitle(filepath.Base(originalName)),
		Description: describe(text, 200),
		Text:        text,
		FileType:    types.FILE_TYPE_SPREADSHEET,
		Metadata:    meta,
	}
}

// flattenGrid renders a cell grid as "Row N: col=val" lines. The first
// row is used as the header when more rows follow; output is capped at
// maxRows with an explicit truncation marker. Returns the number of
// data rows rendered.
func flattenGrid(sb *strings.Builder, grid [][2][]string, maxRows int) int {
	if len(grid) == 0 {
		return 0
	}

	header := grid[0][0]
	dataStart := 0
	if len(grid) > 1 {
		header = grid[0][1]
		dataStart = 1
	}

	rendered := 0
	for rowIdx := dataStart; rowIdx < len(grid); rowIdx++ {
		if rendered >= maxRows {
			sb.WriteString(fmt.Sprintf("... (truncated: showing first %d of %d rows)\n", maxRows, len(grid)-dataStart))
			break
		}

		cols, vals := grid[rowIdx][0], grid[rowIdx][1]
		var pairs []string
		for i, val := range vals {
			if strings.TrimSpace(val) == "" {
				continue
			}
			name := cols[i]
			if dataStart == 1 && i < len(header) && strings.TrimSpace(header[i]) != "" {
				name = strings.TrimSpace(header[i])
			}
			pairs = append(pairs, name+"="+strings.TrimSpace(val))
		}

		rendered++
		if len(pairs) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("Row %d: %s\n", rendered, strings.Join(pairs, ", ")))
	}
	return rendered
}

func parseSharedStrings(reader *zip.Reader) []string {
	raw := readZipEntry(reader, "xl/sharedStrings.xml")
	if raw == nil {
		return nil
	}

	var sst sharedStringsXML
	if err := xml.Unmarshal(raw, &sst); err != nil {
		return nil
	}

	out := make([]string, 0, len(sst.Items))
	for _, item := range sst.Items {
		if len(item.Runs) > 0 {
			var sb strings.Builder
			for _, r := range item.Runs {
				sb.WriteString(r.T)
			}
			out = append(out, sb.String())
			continue
		}
		out = append(out, item.T)
	}
	return out
}

func parseSheetNames(reader *zip.Reader) []string {
	raw := readZipEntry(reader, "xl/workbook.xml")
	if raw == nil {
		return nil
	}

	var wb workbookXML
	if err := xml.Unmarshal(raw, &wb); err != nil {
		return nil
	}

	names := make([]string, 0, len(wb.Sheets.Sheet))
	for _, s := range wb.Sheets.Sheet {
		names = append(names, s.Name)
	}
	return names
}

func cellValue(cell worksheetCell, shared []string) string {
	switch cell.Type {
	case "s":
		idx, err := strconv.Atoi(cell.Value)
		if err != nil || idx < 0 || idx >= len(shared) {
			return cell.Value
		}
		return shared[idx]
	case "inlineStr":
		return cell.Inline.T
	case "b":
		if cell.Value == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return cell.Value
	}
}

func columnLetter(ref string) string {
	for i, r := range ref {
		if r >= '0' && r <= '9' {
			return ref[:i]
		}
	}
	return ref
}

// numberedColumn maps 0 -> A, 25 -> Z, 26 -> AA like spreadsheet headers.
func numberedColumn(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
