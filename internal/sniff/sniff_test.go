package sniff

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/errs"
)

func seedStore(t *testing.T, data []byte) (*Sniffer, blob.Ref) {
	t.Helper()
	store := blob.NewMemStore()
	ref := blob.Ref{Location: "bucket", Key: "uploads/file"}
	store.Put(ref, data)
	return New(store), ref
}

// zipWithEOCD fabricates a blob that looks like an intact xlsx container:
// PK local-file magic up front, EOCD signature in the tail.
func zipWithEOCD(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0x50, 0x4B, 0x03, 0x04})
	copy(data[size-22:], []byte{0x50, 0x4B, 0x05, 0x06})
	return data
}

func TestValidate_Delimited(t *testing.T) {
	csv := "Client Name,Amount,Posting Date\n" + strings.Repeat("Acme,100,2024-01-31\n", 10)
	s, ref := seedStore(t, []byte(csv))

	v, err := s.Validate(context.Background(), ref)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid || v.Kind != KindDelimited {
		t.Errorf("Validate() = %+v, want valid delimited", v)
	}
}

func TestValidate_IntactWorkbook(t *testing.T) {
	s, ref := seedStore(t, zipWithEOCD(10*1024))

	v, err := s.Validate(context.Background(), ref)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid || v.Kind != KindWorkbook {
		t.Errorf("Validate() = %+v, want valid workbook", v)
	}
}

func TestValidate_TruncatedWorkbook(t *testing.T) {
	// PK magic but no EOCD anywhere: a cut-off upload.
	data := make([]byte, 10*1024)
	copy(data, []byte{0x50, 0x4B, 0x03, 0x04})
	s, ref := seedStore(t, data)

	v, err := s.Validate(context.Background(), ref)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Valid {
		t.Fatal("Validate() accepted a workbook without an EOCD trailer")
	}
	if !strings.Contains(v.Message, "end-of-central-directory") {
		t.Errorf("message should name the missing trailer, got %q", v.Message)
	}
	if !strings.Contains(v.Message, "truncated or corrupted") {
		t.Errorf("message should call the file truncated or corrupted, got %q", v.Message)
	}
}

func TestValidate_EOCDOutsideTailWindow(t *testing.T) {
	// EOCD present but buried deeper than the tail window: still rejected.
	data := make([]byte, 20*1024)
	copy(data, []byte{0x50, 0x4B, 0x03, 0x04})
	copy(data[1000:], []byte{0x50, 0x4B, 0x05, 0x06})
	s, ref := seedStore(t, data)

	v, err := s.Validate(context.Background(), ref)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Valid {
		t.Error("Validate() accepted a workbook whose EOCD is not in the tail window")
	}
}

func TestValidate_LegacyXLS(t *testing.T) {
	data := make([]byte, 4096)
	copy(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	s, ref := seedStore(t, data)

	v, err := s.Validate(context.Background(), ref)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Valid {
		t.Fatal("Validate() accepted a legacy .xls compound document")
	}
	if !strings.Contains(v.Message, "save the file as .xlsx") {
		t.Errorf("message should tell the user to convert, got %q", v.Message)
	}
}

func TestValidate_TooSmall(t *testing.T) {
	s, ref := seedStore(t, []byte("a,b\n1,2\n"))

	v, err := s.Validate(context.Background(), ref)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Valid {
		t.Error("Validate() accepted a file under the minimum size")
	}
}

func TestValidate_UnknownBinary(t *testing.T) {
	data := bytes.Repeat([]byte{0x01, 0x02, 0x00, 0x03}, 100)
	s, ref := seedStore(t, data)

	v, err := s.Validate(context.Background(), ref)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Valid || v.Kind != KindUnknown {
		t.Errorf("Validate() = %+v, want invalid unknown", v)
	}
}

func TestReject(t *testing.T) {
	if err := Reject(Verdict{Valid: true, Kind: KindDelimited}); err != nil {
		t.Errorf("Reject(valid) = %v, want nil", err)
	}

	err := Reject(Verdict{Kind: KindUnknown, Message: "unrecognized file signature"})
	if err == nil {
		t.Fatal("Reject(invalid) = nil, want FormatError")
	}
	if !errs.IsFormat(err) {
		t.Errorf("Reject() error type = %T, want *errs.FormatError", err)
	}
}
