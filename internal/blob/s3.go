package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"ledgerflow/internal/errs"
)

// Default wall-clock budgets for storage operations. Header-only range reads
// are short; full downloads of large workbooks can legitimately run minutes.
const (
	DefaultRangeTimeout    = 30 * time.Second
	DefaultDownloadTimeout = 15 * time.Minute
	DefaultUploadTimeout   = 15 * time.Minute
)

// S3Store implements Store on top of S3-compatible object storage.
type S3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader

	// RangeTimeout bounds range-limited reads (header extraction, sniffing).
	RangeTimeout time.Duration
	// DownloadTimeout bounds full-object downloads.
	DownloadTimeout time.Duration
	// UploadTimeout bounds archive uploads.
	UploadTimeout time.Duration
}

// NewS3Store creates a store from an established AWS session.
func NewS3Store(sess *session.Session) *S3Store {
	return &S3Store{
		client:          s3.New(sess),
		uploader:        s3manager.NewUploader(sess),
		RangeTimeout:    DefaultRangeTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
		UploadTimeout:   DefaultUploadTimeout,
	}
}

// timedBody ties the lifetime of a timeout context to the response body so
// the budget covers the whole read, not just the request round trip.
type timedBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *timedBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (s *S3Store) Download(ctx context.Context, ref Ref) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.DownloadTimeout)

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Location),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		cancel()
		return nil, wrapStorageErr(ctx, "download "+ref.String(), err)
	}
	return &timedBody{ReadCloser: out.Body, cancel: cancel}, nil
}

func (s *S3Store) DownloadRange(ctx context.Context, ref Ref, from, to int64) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.RangeTimeout)

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Location),
		Key:    aws.String(ref.Key),
		Range:  aws.String(rangeHeader(from, to)),
	})
	if err != nil {
		cancel()
		return nil, wrapStorageErr(ctx, "range read "+ref.String(), err)
	}
	return &timedBody{ReadCloser: out.Body, cancel: cancel}, nil
}

func (s *S3Store) Upload(ctx context.Context, ref Ref, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, s.UploadTimeout)
	defer cancel()

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(ref.Location),
		Key:    aws.String(ref.Key),
		Body:   body,
	})
	if err != nil {
		return wrapStorageErr(ctx, "upload "+ref.String(), err)
	}
	return nil
}

func (s *S3Store) Size(ctx context.Context, ref Ref) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.RangeTimeout)
	defer cancel()

	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Location),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return 0, wrapStorageErr(ctx, "head "+ref.String(), err)
	}
	return aws.Int64Value(out.ContentLength), nil
}

// rangeHeader renders an HTTP byte-range header value. A negative from asks
// for a suffix range (the last -from bytes); a negative to leaves the range
// open-ended.
func rangeHeader(from, to int64) string {
	switch {
	case from < 0:
		return fmt.Sprintf("bytes=%d", from)
	case to < 0:
		return fmt.Sprintf("bytes=%d-", from)
	default:
		return fmt.Sprintf("bytes=%d-%d", from, to)
	}
}

// wrapStorageErr converts deadline expiry into the timeout category and
// leaves everything else wrapped with the operation name.
func wrapStorageErr(ctx context.Context, op string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errs.Timeout(op, err)
	}
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == "RequestCanceled" {
		return errs.Timeout(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
