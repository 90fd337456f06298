// Package header extracts the column header row from an uploaded ledger
// file without materializing the dataset.
//
// Two fast paths exist: delimited text needs only a small range read of the
// blob's prefix, while workbook containers must be spooled to scratch and
// opened container-aware (the central directory lives at the end, so a
// prefix read cannot help). Results are memoized briefly because the mapping
// UI round-trips several times per upload.
package header

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/errs"
	"ledgerflow/internal/scratch"
	"ledgerflow/internal/sniff"
)

// prefixWindow is how many leading bytes the delimited fast path fetches.
// No real ledger export carries a header row longer than this.
const prefixWindow = 8 * 1024

// Extractor reads header rows from blobs in object storage.
type Extractor struct {
	store      blob.Store
	sniffer    *sniff.Sniffer
	cache      *Cache
	scratchDir string // "" means the OS temp dir
}

// NewExtractor creates an Extractor. cache may be nil to disable memoization.
func NewExtractor(store blob.Store, cache *Cache, scratchDir string) *Extractor {
	return &Extractor{
		store:      store,
		sniffer:    sniff.New(store),
		cache:      cache,
		scratchDir: scratchDir,
	}
}

// Extract returns the ordered header row of the blob. Order is significant
// (it defines column-to-field correspondence) and duplicates are tolerated.
func (e *Extractor) Extract(ctx context.Context, ref blob.Ref) ([]string, error) {
	if e.cache != nil {
		if headers, ok := e.cache.Get(ref.CacheKey()); ok {
			return headers, nil
		}
	}

	verdict, err := e.sniffer.Validate(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !verdict.Valid {
		return nil, sniff.Reject(verdict)
	}

	var headers []string
	switch verdict.Kind {
	case sniff.KindDelimited:
		headers, err = e.delimitedHeaders(ctx, ref)
		if err != nil {
			// The prefix may have looked like text while actually being a
			// workbook with an odd signature; try the other strategy before
			// surfacing the error.
			if wbHeaders, wbErr := e.workbookHeaders(ctx, ref); wbErr == nil {
				headers, err = wbHeaders, nil
			}
		}
	case sniff.KindWorkbook:
		headers, err = e.workbookHeaders(ctx, ref)
		if err != nil {
			// A PK signature with an intact trailer can still be junk the
			// spreadsheet parser chokes on; the delimited path gets one
			// chance before the workbook error surfaces.
			if dHeaders, dErr := e.delimitedHeaders(ctx, ref); dErr == nil {
				headers, err = dHeaders, nil
			}
		}
	default:
		return nil, errs.Format("cannot extract headers from %s file", verdict.Kind)
	}
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(ref.CacheKey(), headers)
	}
	return headers, nil
}

// delimitedHeaders fetches the blob's prefix and parses the first line.
// If no line terminator appears in the window, the whole fetched prefix is
// the header line (tiny files fit entirely in the window).
func (e *Extractor) delimitedHeaders(ctx context.Context, ref blob.Ref) ([]string, error) {
	rc, err := e.store.DownloadRange(ctx, ref, 0, prefixWindow-1)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, errs.FormatWrap(err, "reading header window of %s", ref)
	}

	line := string(buf)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSuffix(line, "\r")
	line = strings.TrimPrefix(line, "\uFEFF")

	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, errs.FormatWrap(err, "parsing header row of %s", ref)
	}

	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = strings.TrimSpace(f)
	}
	return headers, nil
}

// workbookHeaders spools the container to scratch, re-validates it, and
// reads only the first row of the first sheet. The scratch copy is removed
// on every exit path.
func (e *Extractor) workbookHeaders(ctx context.Context, ref blob.Ref) ([]string, error) {
	rc, err := e.store.Download(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	path, cleanup, err := scratch.Spool(e.scratchDir, "headers-*.xlsx", rc)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.FormatWrap(err, "opening workbook %s (signature PK)", ref)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errs.Format("workbook %s has no sheets", ref)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, errs.FormatWrap(err, "iterating sheet %q of %s", sheet, ref)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errs.Format("workbook %s sheet %q is empty", ref, sheet)
	}
	cells, err := rows.Columns()
	if err != nil {
		return nil, errs.FormatWrap(err, "reading header row of %s", ref)
	}

	headers := make([]string, len(cells))
	for i, c := range cells {
		headers[i] = strings.TrimSpace(c) // blank for empty cells
	}
	return headers, nil
}

// SetMatch reports whether two header rows describe the same columns,
// ignoring case, surrounding whitespace, and order. Used to decide whether a
// workbook sheet belongs to the same logical dataset as the reference
// headers; mismatched sheets are skipped wholly rather than misaligned.
func SetMatch(reference, candidate []string) bool {
	norm := func(hs []string) map[string]int {
		set := make(map[string]int, len(hs))
		for _, h := range hs {
			h = strings.ToLower(strings.TrimSpace(h))
			if h == "" {
				continue
			}
			set[h]++
		}
		return set
	}
	a, b := norm(reference), norm(candidate)
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
