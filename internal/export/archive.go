// Package export renders structured result records into workbooks and seals
// them into a single zip archive. It is the reverse direction of ingest:
// typed records out of the system instead of into it.
package export

import (
	"archive/zip"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"

	"ledgerflow/internal/errs"
	"ledgerflow/internal/scratch"
)

// Result is one structured record to render into its own workbook.
type Result struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	TestName     string `json:"testName"`
	AnalysisName string `json:"analysisName"`
	Summary      any    `json:"summary"`
	Details      any    `json:"details"`
}

// maxNameLen caps the sanitized base name before the id suffix, keeping
// full paths well under filesystem limits.
const maxNameLen = 60

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Archiver builds zip archives of per-result workbooks under a scratch
// directory that is removed on every exit path.
type Archiver struct {
	scratchDir string // "" means the OS temp dir
}

func NewArchiver(scratchDir string) *Archiver {
	return &Archiver{scratchDir: scratchDir}
}

// BuildArchive renders one workbook per result and zips them into
// <labelPrefix>-<timestamp>.zip under the scratch parent. The returned path
// is valid until the caller removes it; the per-workbook scratch directory
// is gone by the time BuildArchive returns.
func (a *Archiver) BuildArchive(ctx context.Context, results []Result, labelPrefix string) (string, error) {
	dir, cleanup, err := scratch.Dir(a.scratchDir, "export-*")
	if err != nil {
		return "", err
	}
	defer cleanup()

	names := make([]string, 0, len(results))
	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return "", errs.Timeout("building export archive", err)
		}
		name := workbookName(res)
		if err := writeWorkbook(filepath.Join(dir, name), res); err != nil {
			return "", err
		}
		names = append(names, name)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	archivePath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s.zip", sanitize(labelPrefix), stamp))
	if err := sealArchive(archivePath, dir, names); err != nil {
		os.Remove(archivePath)
		return "", err
	}
	return archivePath, nil
}

// workbookName builds a collision-free filename: sanitized test name,
// truncated, plus the first 8 characters of the result id.
func workbookName(res Result) string {
	base := sanitize(res.TestName)
	if base == "" {
		base = "result"
	}
	if len(base) > maxNameLen {
		base = base[:maxNameLen]
	}
	id := res.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s.xlsx", base, id)
}

func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "")
}

// writeWorkbook renders res into a three-sheet workbook at path.
func writeWorkbook(path string, res Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const metaSheet = "Metadata"
	// NewFile starts with Sheet1; rename it instead of leaving it empty.
	if err := f.SetSheetName("Sheet1", metaSheet); err != nil {
		return errs.FormatWrap(err, "renaming metadata sheet for result %s", res.ID)
	}
	meta := [][]any{
		{"Test", res.TestName},
		{"Analysis", res.AnalysisName},
		{"Status", res.Status},
		{"Result ID", res.ID},
	}
	for i, row := range meta {
		if err := setRow(f, metaSheet, i+1, row); err != nil {
			return err
		}
	}

	for _, s := range []struct {
		name string
		data any
	}{
		{"Summary", res.Summary},
		{"Results", res.Details},
	} {
		if _, err := f.NewSheet(s.name); err != nil {
			return errs.FormatWrap(err, "creating sheet %q for result %s", s.name, res.ID)
		}
		if err := renderSheet(f, s.name, s.data); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errs.Resource(path, err)
	}
	return nil
}

// sealArchive zips the named workbooks from dir into archivePath at default
// compression. Maximal compression is not worth the latency on a request
// path.
func sealArchive(archivePath, dir string, names []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return errs.Resource(archivePath, err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	for _, name := range names {
		src, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			zw.Close()
			out.Close()
			return errs.Resource(name, err)
		}
		w, err := zw.Create(name)
		if err == nil {
			_, err = io.Copy(w, src)
		}
		src.Close()
		if err != nil {
			zw.Close()
			out.Close()
			return errs.Resource(name, err)
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return errs.Resource(archivePath, err)
	}
	return out.Close()
}
