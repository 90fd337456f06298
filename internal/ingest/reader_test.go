package ingest

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBOMSkipper(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"bom stripped", []byte("\xEF\xBB\xBFName,Amount"), "Name,Amount"},
		{"no bom untouched", []byte("Name,Amount"), "Name,Amount"},
		{"short file", []byte("ab"), "ab"},
		{"single byte", []byte("a"), "a"},
		{"empty", nil, ""},
		{"bom only", []byte("\xEF\xBB\xBF"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(&bomSkipper{r: bytes.NewReader(tt.input)})
			if err != nil {
				t.Fatalf("ReadAll error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("read %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF8Cleaner(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean ascii", "hello,world", "hello,world"},
		{"clean multibyte", "naïve,café,日本", "naïve,café,日本"},
		{"invalid byte replaced", "a\xFFb", "a?b"},
		{"invalid run replaced", "a\xFF\xFEb", "a??b"},
		{"truncated rune at end", "ab\xC3", "ab?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(&utf8Cleaner{r: strings.NewReader(tt.input)})
			if err != nil {
				t.Fatalf("ReadAll error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("read %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF8Cleaner_RuneSplitAcrossReads(t *testing.T) {
	// é is C3 A9; a one-byte-at-a-time source splits it across reads.
	src := oneByteReader{data: []byte("caf\xC3\xA9")}
	got, err := io.ReadAll(&utf8Cleaner{r: &src})
	if err != nil {
		t.Fatalf("ReadAll error = %v", err)
	}
	if string(got) != "café" {
		t.Errorf("read %q, want %q", got, "café")
	}
}

// oneByteReader yields one byte per Read call.
type oneByteReader struct {
	data []byte
	pos  int
}

func (s *oneByteReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	p[0] = s.data[s.pos]
	s.pos++
	return 1, nil
}

func TestDecodeReader_Windows1252(t *testing.T) {
	// 0x93/0x94 are curly quotes in Windows-1252.
	input := []byte("\x93Acme\x94,100")
	got, err := io.ReadAll(decodeReader(bytes.NewReader(input), "windows-1252"))
	if err != nil {
		t.Fatalf("ReadAll error = %v", err)
	}
	if string(got) != "“Acme”,100" {
		t.Errorf("read %q, want curly-quoted Acme", got)
	}
}

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("hello world")}
	if _, err := io.ReadAll(c); err != nil {
		t.Fatalf("ReadAll error = %v", err)
	}
	if c.count() != 11 {
		t.Errorf("count() = %d, want 11", c.count())
	}
}
