package export

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"ledgerflow/internal/errs"
)

func TestWorkbookName(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			"plain",
			Result{ID: "a1b2c3d4e5f6", TestName: "RevenueCheck"},
			"RevenueCheck_a1b2c3d4.xlsx",
		},
		{
			"unsafe chars stripped",
			Result{ID: "abc", TestName: "Q1/Q2 Totals (draft)"},
			"Q1Q2Totalsdraft_abc.xlsx",
		},
		{
			"empty name falls back",
			Result{ID: "deadbeef99", TestName: "///"},
			"result_deadbeef.xlsx",
		},
		{
			"long name truncated",
			Result{ID: "12345678", TestName: strings.Repeat("x", 80)},
			strings.Repeat("x", 60) + "_12345678.xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workbookName(tt.res); got != tt.want {
				t.Errorf("workbookName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildArchive(t *testing.T) {
	scratch := t.TempDir()
	a := NewArchiver(scratch)

	results := []Result{
		{
			ID:           "11111111-aaaa",
			Status:       "passed",
			TestName:     "BalanceCheck",
			AnalysisName: "FY25 Close",
			Summary: []map[string]any{
				{"account": "1000", "delta": 0},
				{"account": "2000", "delta": -5},
				{"account": "3000", "delta": 5},
			},
			Details: map[string]any{"threshold": 10, "rows": 42},
		},
		{
			ID:       "22222222-bbbb",
			Status:   "failed",
			TestName: "DuplicateScan",
			Summary:  "3 duplicate entries",
			Details:  []any{"JE-100", "JE-104", "JE-211"},
		},
	}

	path, err := a.BuildArchive(context.Background(), results, "fy25 close*")
	if err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	defer os.Remove(path)

	base := strings.TrimSuffix(filepath.Base(path), ".zip")
	if !strings.HasPrefix(base, "fy25close-") {
		t.Errorf("archive name %q not sanitized-prefix + timestamp", base)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer zr.Close()

	if len(zr.File) != 2 {
		t.Fatalf("archive holds %d files, want 2", len(zr.File))
	}

	books := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		books[zf.Name] = zf
	}
	first, ok := books["BalanceCheck_11111111.xlsx"]
	if !ok {
		t.Fatalf("missing BalanceCheck workbook; have %v", names(zr.File))
	}

	rc, err := first.Open()
	if err != nil {
		t.Fatalf("opening zipped workbook: %v", err)
	}
	defer rc.Close()
	f, err := excelize.OpenReader(rc)
	if err != nil {
		t.Fatalf("excelize.OpenReader: %v", err)
	}
	defer f.Close()

	meta, err := f.GetRows("Metadata")
	if err != nil {
		t.Fatalf("Metadata rows: %v", err)
	}
	if len(meta) != 4 || meta[0][1] != "BalanceCheck" || meta[2][1] != "passed" {
		t.Errorf("metadata rows = %v", meta)
	}

	// Record-list summary: one header row plus one row per record.
	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("Summary rows: %v", err)
	}
	if len(summary) != 4 {
		t.Fatalf("summary has %d rows, want 4", len(summary))
	}
	if summary[0][0] != "account" || summary[0][1] != "delta" {
		t.Errorf("summary header = %v", summary[0])
	}
	if summary[2][0] != "2000" || summary[2][1] != "-5" {
		t.Errorf("summary row 2 = %v", summary[2])
	}

	// Flat-object details: one key/value row per entry, no header.
	details, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("Results rows: %v", err)
	}
	if len(details) != 2 || details[0][0] != "rows" || details[0][1] != "42" {
		t.Errorf("details rows = %v", details)
	}
}

func names(files []*zip.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestBuildArchive_ScratchCleanup(t *testing.T) {
	scratch := t.TempDir()
	a := NewArchiver(scratch)

	path, err := a.BuildArchive(context.Background(), []Result{
		{ID: "abc", TestName: "T", Summary: "ok", Details: "ok"},
	}, "cleanup")
	if err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	defer os.Remove(path)

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir not cleaned, holds %d entries", len(entries))
	}
}

func TestBuildArchive_CanceledContext(t *testing.T) {
	scratch := t.TempDir()
	a := NewArchiver(scratch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.BuildArchive(ctx, []Result{{ID: "x", TestName: "T"}}, "late")
	if !errs.IsTimeout(err) {
		t.Errorf("err = %v, want timeout", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir not cleaned after failure, holds %d entries", len(entries))
	}
}
