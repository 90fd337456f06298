// Package sink persists typed record batches. The Postgres implementation
// bulk-loads each batch with the COPY protocol and stamps the parent file
// record when the stream finalizes.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerflow/internal/ingest"
)

// Postgres writes batches into gl_entries via CopyFrom. One Postgres value
// serves one file: it carries the file record id and the column order for
// every batch of that job.
type Postgres struct {
	pool   *pgxpool.Pool
	fileID string
	fields []string // canonical field names, in gl_entries column order
}

// NewPostgres builds a sink for one file's ingestion. fields fixes the
// column order; every record in every batch must carry exactly this set.
func NewPostgres(pool *pgxpool.Pool, fileID string, fields []string) *Postgres {
	return &Postgres{pool: pool, fileID: fileID, fields: fields}
}

// Accept bulk-loads one batch. Batches arrive in file row order; a failed
// batch fails the whole job upstream, batches already copied stay put.
func (p *Postgres) Accept(ctx context.Context, batch ingest.Batch) error {
	rows := make([][]any, len(batch))
	for i, rec := range batch {
		row := make([]any, 0, len(p.fields)+1)
		row = append(row, p.fileID)
		for _, f := range p.fields {
			row = append(row, rec[f])
		}
		rows[i] = row
	}

	columns := append([]string{"file_id"}, p.fields...)
	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{"gl_entries"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying batch into gl_entries: %w", err)
	}
	if int(n) != len(batch) {
		return fmt.Errorf("copied %d of %d rows into gl_entries", n, len(batch))
	}
	return nil
}

// Finalize marks the file record processed with its total row count.
func (p *Postgres) Finalize(ctx context.Context, totalRows int) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE gl_files SET status = 'processed', row_count = $1, processed_at = $2 WHERE id = $3`,
		totalRows, time.Now().UTC(), p.fileID,
	)
	if err != nil {
		return fmt.Errorf("finalizing file %s: %w", p.fileID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finalizing file %s: no such file record", p.fileID)
	}
	return nil
}
