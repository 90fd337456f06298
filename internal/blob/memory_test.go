package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestMemStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ref := Ref{Location: "ledgerflow", Key: "uploads/q1.csv"}

	if err := store.Upload(ctx, ref, strings.NewReader("Name,Amount\nA,100\n")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	size, err := store.Size(ctx, ref)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 18 {
		t.Errorf("Size = %d, want 18", size)
	}

	rc, err := store.Download(ctx, ref)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "Name,Amount\nA,100\n" {
		t.Errorf("Download = %q", data)
	}
}

func TestMemStore_MissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ref := Ref{Location: "ledgerflow", Key: "uploads/gone.csv"}

	if _, err := store.Download(ctx, ref); err == nil || !strings.Contains(err.Error(), "no such key") {
		t.Errorf("Download err = %v, want no such key", err)
	}
	if _, err := store.Size(ctx, ref); err == nil {
		t.Error("Size returned nil error for missing key")
	}
}

func TestMemStore_DownloadRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ref := Ref{Location: "ledgerflow", Key: "uploads/range.bin"}
	store.Put(ref, []byte("0123456789"))

	tests := []struct {
		name string
		from int64
		to   int64
		want string
	}{
		{"prefix", 0, 3, "0123"},
		{"interior", 4, 6, "456"},
		{"open ended", 7, -1, "789"},
		{"suffix", -4, -1, "6789"},
		{"suffix larger than object", -100, -1, "0123456789"},
		{"end clamped", 8, 50, "89"},
		{"from past end", 50, -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := store.DownloadRange(ctx, ref, tt.from, tt.to)
			if err != nil {
				t.Fatalf("DownloadRange: %v", err)
			}
			defer rc.Close()
			got, _ := io.ReadAll(rc)
			if string(got) != tt.want {
				t.Errorf("range [%d,%d] = %q, want %q", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRefCacheKey(t *testing.T) {
	ref := Ref{Location: "ledgerflow", Key: "uploads/a.csv"}
	if got := ref.CacheKey(); got != "ledgerflow/uploads/a.csv" {
		t.Errorf("CacheKey = %q", got)
	}
}

func TestMemStore_PutCopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ref := Ref{Location: "l", Key: "k"}

	buf := []byte("original")
	store.Put(ref, buf)
	buf[0] = 'X'

	rc, err := store.Download(ctx, ref)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "original" {
		t.Errorf("stored data mutated: %q", got)
	}
}
