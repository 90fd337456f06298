package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpool(t *testing.T) {
	dir := t.TempDir()

	path, cleanup, err := Spool(dir, "ingest-*.xlsx", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Spool: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("spooled outside dir: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file survived cleanup: %v", err)
	}

	// Second call is a no-op, not a panic or warning-worthy failure.
	cleanup()
}

func TestSpool_ReadFailureCleansUp(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Spool(dir, "ingest-*", failingReader{})
	if err == nil {
		t.Fatal("expected error from failing reader")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("partial spool left behind: %d entries", len(entries))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, os.ErrDeadlineExceeded
}

func TestDir(t *testing.T) {
	parent := t.TempDir()

	path, cleanup, err := Dir(parent, "export-*")
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "a.xlsx"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("dir survived cleanup: %v", err)
	}
}
