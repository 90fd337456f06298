// Package blob abstracts the object store holding uploaded ledger files
// and generated export archives.
//
// The pipeline only ever needs four operations: full download, range-limited
// download, upload, and size lookup. Credentials and bucket provisioning are
// the deployment's concern, not this package's.
package blob

import (
	"context"
	"io"
)

// Ref identifies a file in object storage. Immutable once created.
type Ref struct {
	Location string // bucket or logical storage location
	Key      string // object key within the location
}

// CacheKey returns a composite key suitable for memoization.
func (r Ref) CacheKey() string { return r.Location + "/" + r.Key }

func (r Ref) String() string { return r.Location + "/" + r.Key }

// Store is the object storage contract consumed by the pipeline.
//
// Download and DownloadRange return a stream the caller must close.
// DownloadRange fetches bytes [from, to] inclusive; to < 0 means
// "from offset to end" and from < 0 means "last -from bytes" (suffix range,
// used to inspect container trailers).
type Store interface {
	Download(ctx context.Context, ref Ref) (io.ReadCloser, error)
	DownloadRange(ctx context.Context, ref Ref, from, to int64) (io.ReadCloser, error)
	Upload(ctx context.Context, ref Ref, body io.Reader) error
	Size(ctx context.Context, ref Ref) (int64, error)
}
