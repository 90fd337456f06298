package ingest

// csv.go is the delimited-text path: an incremental encoding/csv parse fed
// through a bounded channel to the batch flusher. Parser and flusher run as
// an errgroup so either side's failure tears the pipeline down with one
// descriptive error.

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/errs"
)

func (p *Processor) processDelimited(ctx context.Context, ref blob.Ref, spec JobSpec, sink Sink, prog ProgressFunc) (int, error) {
	rc, err := p.store.Download(ctx, ref)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	counter := &countingReader{r: rc}
	cr := csv.NewReader(decodeReader(counter, spec.Encoding))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	headerRow, err := cr.Read()
	if err == io.EOF {
		return 0, errs.Format("file %s is empty", ref)
	}
	if err != nil {
		return 0, errs.FormatWrap(err, "parsing header row of %s", ref)
	}
	for i := range headerRow {
		headerRow[i] = strings.TrimSpace(headerRow[i])
	}

	xform := newRowTransform(headerRow, spec.Mapping, spec.Template.FieldTypes())
	b := newBatcher(sink, p.cfg.CSVBatchSize, prog, counter.count)

	rows := make(chan []string, p.cfg.RowBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		for line := 2; ; line++ {
			row, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return errs.FormatWrap(err, "parsing %s at line %d", ref, line)
			}
			if empty(row) {
				continue
			}
			select {
			case rows <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for row := range rows {
			if err := b.add(gctx, xform.apply(row)); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}

	total, err := b.final(ctx)
	if err != nil {
		return 0, err
	}
	if err := sink.Finalize(ctx, total); err != nil {
		return 0, err
	}
	return total, nil
}
