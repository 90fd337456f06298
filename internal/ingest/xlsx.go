package ingest

// xlsx.go is the workbook path. Two strategies share the same batching and
// sheet-acceptance logic: the normal path parses each sheet in one call,
// the constrained path walks rows through excelize's streaming iterator and
// a bounded channel so a huge workbook never lands in memory at once.

import (
	"context"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/errs"
	"ledgerflow/internal/header"
	"ledgerflow/internal/scratch"
	"ledgerflow/internal/template"
)

func (p *Processor) processWorkbook(ctx context.Context, ref blob.Ref, spec JobSpec, sink Sink, prog ProgressFunc) (int, Strategy, error) {
	size, err := p.store.Size(ctx, ref)
	if err != nil {
		return 0, StrategyNormal, err
	}
	strategy := p.strategyFor(size)

	reference, err := p.headers.Extract(ctx, ref)
	if err != nil {
		return 0, strategy, err
	}

	rc, err := p.store.Download(ctx, ref)
	if err != nil {
		return 0, strategy, err
	}
	path, cleanup, err := scratch.Spool(p.cfg.ScratchDir, "ingest-*.xlsx", rc)
	rc.Close()
	if err != nil {
		return 0, strategy, err
	}
	defer cleanup()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, strategy, errs.FormatWrap(err, "opening workbook %s (signature PK)", ref)
	}
	defer f.Close()

	counter := func() int64 { return size }
	batchSize := p.cfg.WorkbookBatchSize
	if strategy == StrategyConstrained {
		batchSize = p.cfg.ConstrainedBatchSize
	}
	b := newBatcher(sink, batchSize, prog, counter)
	types := spec.Template.FieldTypes()

	for _, sheet := range f.GetSheetList() {
		var err error
		if strategy == StrategyConstrained {
			err = p.constrainedSheet(ctx, f, sheet, ref, reference, spec, types, b)
		} else {
			err = p.normalSheet(ctx, f, sheet, ref, reference, spec, types, b)
		}
		if err != nil {
			return 0, strategy, err
		}
	}

	total, err := b.final(ctx)
	if err != nil {
		return 0, strategy, err
	}
	if err := sink.Finalize(ctx, total); err != nil {
		return 0, strategy, err
	}
	return total, strategy, nil
}

// normalSheet parses the whole sheet in one call and batches its data rows.
func (p *Processor) normalSheet(ctx context.Context, f *excelize.File, sheet string, ref blob.Ref, reference []string, spec JobSpec, types map[string]template.FieldType, b *batcher) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return errs.FormatWrap(err, "reading sheet %q of %s", sheet, ref)
	}
	if len(rows) == 0 {
		return nil
	}
	if !header.SetMatch(reference, rows[0]) {
		logSkippedSheet(ref, sheet)
		return nil
	}

	xform := newRowTransform(rows[0], spec.Mapping, types)
	for _, row := range rows[1:] {
		if empty(row) {
			continue
		}
		if err := b.add(ctx, xform.apply(row)); err != nil {
			return err
		}
	}
	return nil
}

// constrainedSheet walks the sheet through the streaming iterator, handing
// rows to the flusher over a bounded channel.
func (p *Processor) constrainedSheet(ctx context.Context, f *excelize.File, sheet string, ref blob.Ref, reference []string, spec JobSpec, types map[string]template.FieldType, b *batcher) error {
	iter, err := f.Rows(sheet)
	if err != nil {
		return errs.FormatWrap(err, "iterating sheet %q of %s", sheet, ref)
	}
	defer iter.Close()

	if !iter.Next() {
		return iter.Error()
	}
	headerRow, err := iter.Columns()
	if err != nil {
		return errs.FormatWrap(err, "reading header row of sheet %q in %s", sheet, ref)
	}
	if !header.SetMatch(reference, headerRow) {
		logSkippedSheet(ref, sheet)
		return nil
	}

	xform := newRowTransform(headerRow, spec.Mapping, types)
	rows := make(chan []string, p.cfg.RowBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		for iter.Next() {
			row, err := iter.Columns()
			if err != nil {
				return errs.FormatWrap(err, "reading sheet %q of %s", sheet, ref)
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
		return iter.Error()
	})

	g.Go(func() error {
		for row := range rows {
			if err := b.add(gctx, xform.apply(row)); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}
