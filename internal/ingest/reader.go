package ingest

// reader.go wraps the raw blob stream for text parsing in constant memory:
// BOM stripping, charset decoding, byte-level sanitization, and read
// accounting, all as io.Reader layers so no stage ever holds the file.

import (
	"io"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeReader prepares a byte stream for the CSV parser. The UTF-8 BOM
// common in Windows exports is always stripped. A declared single-byte
// encoding is decoded to UTF-8; otherwise invalid UTF-8 sequences are
// replaced so the parser never chokes mid-file.
func decodeReader(r io.Reader, encoding string) io.Reader {
	r = &bomSkipper{r: r}
	switch encoding {
	case "windows-1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder())
	case "windows-1251":
		return transform.NewReader(r, charmap.Windows1251.NewDecoder())
	case "iso-8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return &utf8Cleaner{r: r}
	}
}

// bomSkipper strips a leading UTF-8 BOM (EF BB BF) on the first read.
type bomSkipper struct {
	r       io.Reader
	checked bool
	held    []byte
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var head [3]byte
		n, err := io.ReadFull(b.r, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n > 0 && !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
			b.held = append(b.held, head[:n]...)
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.held) > 0 {
		n := copy(p, b.held)
		b.held = b.held[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Cleaner replaces invalid UTF-8 bytes with '?' as data flows through.
// A possibly-incomplete multi-byte sequence at the end of a read is held
// back until the next read so valid runes split across reads survive.
type utf8Cleaner struct {
	r       io.Reader
	pending []byte
	eof     bool
}

func (c *utf8Cleaner) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}

	n := copy(p, c.pending)
	c.pending = c.pending[:0]

	if !c.eof {
		m, err := c.r.Read(p[n:])
		n += m
		if err == io.EOF {
			c.eof = true
		} else if err != nil {
			return 0, err
		}
	}
	if n == 0 {
		if c.eof {
			return 0, io.EOF
		}
		return 0, nil
	}

	// Hold back a trailing incomplete sequence unless the stream ended.
	if !c.eof {
		if keep := incompleteTail(p[:n]); keep > 0 {
			c.pending = append(c.pending, p[n-keep:n]...)
			n -= keep
		}
	}

	// Fast path: clean ASCII/UTF-8 needs no rewriting.
	if utf8.Valid(p[:n]) {
		return n, nil
	}

	w := 0
	for r := 0; r < n; {
		ru, size := utf8.DecodeRune(p[r:n])
		if ru == utf8.RuneError && size == 1 {
			p[w] = '?'
			w++
			r++
			continue
		}
		copy(p[w:], p[r:r+size])
		w += size
		r += size
	}
	return w, nil
}

// incompleteTail returns how many bytes at the end of buf could be the start
// of a multi-byte rune that has not fully arrived yet.
func incompleteTail(buf []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(buf); i++ {
		b := buf[len(buf)-i]
		if b&0xC0 == 0x80 { // continuation byte, keep scanning back
			continue
		}
		if b >= 0xC0 { // lead byte: incomplete if the rune needs more bytes
			if runeSize(b) > i {
				return i
			}
		}
		return 0
	}
	return 0
}

func runeSize(lead byte) int {
	switch {
	case lead < 0x80:
		return 1
	case lead < 0xC0:
		return 0
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	default:
		return 4
	}
}

// countingReader tracks bytes consumed for progress reporting. The count is
// atomic because the flusher goroutine reads it while the parser advances it.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) count() int64 { return c.n.Load() }
