package extractor

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

// binarySkipExts are never worth feeding through extraction, even the
// fallback path. Extension match only, no content sniffing.
var binarySkipExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".o": true, ".a": true, ".class": true, ".jar": true, ".war": true,
	".7z": true, ".rar": true, ".iso": true, ".img": true, ".dmg": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".mkv": true,
	".wav": true, ".flac": true, ".ogg": true, ".ttf": true, ".otf": true,
	".woff": true, ".woff2": true, ".eot": true, ".pyc": true, ".wasm": true,
	".db": true, ".sqlite": true, ".parquet": true,
}

// extractArchive expands the archive into a throwaway directory, walks
// it, and runs every text-worthy entry through the normal extraction
// contract. The workspace directory is removed on every exit path.
func (e *Extractor) extractArchive(ctx context.Context, data []byte, originalName string, depth int) *types.ExtractedDocument {
	if depth >= maxArchiveDepth {
		return placeholderDocument(originalName, types.FILE_TYPE_ARCHIVE,
			"nested archive left unexpanded")
	}

	tmpDir, err := os.MkdirTemp("", "quillmind-archive-")
	if err != nil {
		return placeholderDocument(originalName, types.FILE_TYPE_ARCHIVE,
			"cannot create extraction workspace: "+err.Error())
	}
	defer os.RemoveAll(tmpDir)

	lower := strings.ToLower(originalName)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		err = expandZip(data, tmpDir)
	case strings.HasSuffix(lower, ".tar"):
		err = expandTar(bytes.NewReader(data), tmpDir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		err = expandTarGz(data, tmpDir)
	default:
		err = fmt.Errorf("unsupported archive format")
	}
	if err != nil {
		return placeholderDocument(originalName, types.FILE_TYPE_ARCHIVE,
			"unreadable archive: "+err.Error())
	}

	var entries []string
	walkErr := filepath.WalkDir(tmpDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			entries = append(entries, path)
		}
		return nil
	})
	if walkErr != nil {
		return placeholderDocument(originalName, types.FILE_TYPE_ARCHIVE,
			"cannot walk archive contents: "+walkErr.Error())
	}

	total := len(entries)
	truncated := total > e.maxArchiveEntries
	if truncated {
		entries = entries[:e.maxArchiveEntries]
	}

	var (
		subDocs   []types.ExtractedDocument
		listing   []string
		processed int
		skipped   int
		failed    int
	)

	for _, path := range entries {
		rel, relErr := filepath.Rel(tmpDir, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		rel = filepath.ToSlash(rel)

		if binarySkipExts[strings.ToLower(filepath.Ext(path))] {
			skipped++
			listing = append(listing, fmt.Sprintf("- %s [skipped: binary]", rel))
			continue
		}

		sub, entryErr := e.extractEntry(ctx, path, rel, depth+1)
		if entryErr != nil {
			failed++
			listing = append(listing, fmt.Sprintf("- %s [entry failed: %s]", rel, entryErr.Error()))
			continue
		}

		if sub.Metadata == nil {
			sub.Metadata = map[string]string{}
		}
		sub.Metadata["archive_entry"] = rel
		subDocs = append(subDocs, *sub)
		processed++
		listing = append(listing, fmt.Sprintf("- %s (%s)", rel, sub.FileType))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Archive report for %s\n", filepath.Base(originalName)))
	sb.WriteString(fmt.Sprintf("Entries: %d files (%d processed, %d skipped, %d failed)\n\n", total, processed, skipped, failed))
	sb.WriteString(strings.Join(listing, "\n"))
	if truncated {
		sb.WriteString(fmt.Sprintf("\n\n[archive truncated: %d entries, processed first %d]", total, e.maxArchiveEntries))
	}

	meta := baseMetadata(originalName, filepath.Ext(lower))
	meta["entries"] = fmt.Sprintf("%d", total)

	return &types.ExtractedDocument{
		Title:        types.CleanFileTitle(filepath.Base(originalName)),
		Description:  fmt.Sprintf("archive with %d entries, %d extracted", total, processed),
		Text:         strings.TrimSpace(sb.String()),
		FileType:     types.FILE_TYPE_ARCHIVE,
		Metadata:     meta,
		SubDocuments: subDocs,
	}
}

// extractEntry isolates one archive member so a crash inside its
// extraction surfaces as an inline failure marker instead of taking the
// whole archive down.
func (e *Extractor) extractEntry(ctx context.Context, path, name string, depth int) (doc *types.ExtractedDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return e.extract(ctx, data, name, depth), nil
}

func expandZip(data []byte, dst string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		target, err := securePath(dst, file.Name)
		if err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := file.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func expandTarGz(data []byte, dst string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer gz.Close()
	return expandTar(gz, dst)
}

func expandTar(r io.Reader, dst string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		target, err := securePath(dst, header.Name)
		if err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		out, err := os.Create(target)
		if err != nil {
			return err
		}
		_, err = io.Copy(out, tr)
		out.Close()
		if err != nil {
			return err
		}
	}
}

// securePath rejects entry names that would escape the extraction root.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, filepath.Clean(root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry escapes extraction root: %s", name)
	}
	return target, nil
}
