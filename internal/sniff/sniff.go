// Package sniff determines what kind of file a blob holds and whether it is
// structurally sound enough to hand to a parser.
//
// Detection is byte-level: the first few magic bytes classify the file, and
// for ZIP-based workbook containers a small tail window is searched for the
// end-of-central-directory signature. A container missing that trailer is a
// truncated upload; rejecting it here produces an actionable message instead
// of a confusing failure deep inside the spreadsheet parser.
package sniff

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/errs"
)

// Kind classifies a blob's file format.
type Kind int

const (
	KindUnknown Kind = iota
	KindDelimited
	KindWorkbook
)

func (k Kind) String() string {
	switch k {
	case KindDelimited:
		return "delimited-text"
	case KindWorkbook:
		return "workbook"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of structural validation.
type Verdict struct {
	Valid   bool
	Kind    Kind
	Message string
}

const (
	// minFileSize is the smallest blob worth parsing; anything under this
	// cannot hold a header row and a data row in any supported format.
	minFileSize = 100

	// tailWindow is how many trailing bytes are searched for the ZIP
	// end-of-central-directory signature. The EOCD record is 22 bytes plus
	// up to a 64KB comment; 4KB covers every workbook a spreadsheet tool
	// actually writes.
	tailWindow = 4096

	// prefixLen is how many leading bytes are fetched for magic detection.
	prefixLen = 8
)

var (
	zipMagic = []byte{0x50, 0x4B}                   // "PK"
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}       // legacy compound document (.xls)
	eocdSig  = []byte{0x50, 0x4B, 0x05, 0x06}       // ZIP end-of-central-directory
)

// Sniffer validates blobs against the object store. Read-only; it never
// mutates or deletes the source blob.
type Sniffer struct {
	store blob.Store
}

// New creates a Sniffer backed by the given store.
func New(store blob.Store) *Sniffer {
	return &Sniffer{store: store}
}

// Validate inspects a blob and reports whether it can be parsed, and as what.
func (s *Sniffer) Validate(ctx context.Context, ref blob.Ref) (Verdict, error) {
	size, err := s.store.Size(ctx, ref)
	if err != nil {
		return Verdict{}, err
	}
	if size < minFileSize {
		return Verdict{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("file is too small to be a ledger export (%d bytes)", size),
		}, nil
	}

	prefix, err := s.readRange(ctx, ref, 0, prefixLen-1)
	if err != nil {
		return Verdict{}, err
	}

	switch {
	case bytes.HasPrefix(prefix, cfbMagic):
		return Verdict{
			Kind:    KindUnknown,
			Message: "legacy .xls workbooks are not supported; save the file as .xlsx and upload again",
		}, nil

	case bytes.HasPrefix(prefix, zipMagic):
		return s.validateWorkbook(ctx, ref)

	case looksDelimited(prefix):
		return Verdict{Valid: true, Kind: KindDelimited}, nil

	default:
		return Verdict{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("unrecognized file signature % X", prefix[:min(4, len(prefix))]),
		}, nil
	}
}

// validateWorkbook checks that a ZIP container carries an intact
// end-of-central-directory trailer.
func (s *Sniffer) validateWorkbook(ctx context.Context, ref blob.Ref) (Verdict, error) {
	tail, err := s.readRange(ctx, ref, -tailWindow, 0)
	if err != nil {
		return Verdict{}, err
	}

	if !containsEOCD(tail) {
		return Verdict{
			Kind:    KindWorkbook,
			Message: "workbook is missing its end-of-central-directory trailer; the upload is likely truncated or corrupted, re-export and upload again",
		}, nil
	}

	return Verdict{Valid: true, Kind: KindWorkbook}, nil
}

// containsEOCD scans a buffer byte-by-byte for the EOCD signature.
func containsEOCD(buf []byte) bool {
	for i := 0; i+len(eocdSig) <= len(buf); i++ {
		if buf[i] == eocdSig[0] && bytes.Equal(buf[i:i+len(eocdSig)], eocdSig) {
			return true
		}
	}
	return false
}

// looksDelimited reports whether a prefix plausibly starts a text file:
// printable ASCII, UTF-8 lead bytes, or whitespace.
func looksDelimited(prefix []byte) bool {
	if len(prefix) == 0 {
		return false
	}
	for _, b := range prefix {
		if b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b < 0x20 {
			return false
		}
	}
	return true
}

func (s *Sniffer) readRange(ctx context.Context, ref blob.Ref, from, to int64) ([]byte, error) {
	rc, err := s.store.DownloadRange(ctx, ref, from, to)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, errs.FormatWrap(err, "reading bytes [%d,%d] of %s", from, to, ref)
	}
	return buf, nil
}

// Reject converts an invalid Verdict into a FormatError. Callers that need
// an error rather than a verdict use this after Validate.
func Reject(v Verdict) error {
	if v.Valid {
		return nil
	}
	return errs.Format("%s", v.Message)
}
