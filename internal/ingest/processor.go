package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/header"
	"ledgerflow/internal/sniff"
	"ledgerflow/internal/template"
)

// Default processing parameters. Batch sizes shrink as memory pressure
// grows: delimited text streams cheaply, whole-parsed workbooks hold the
// sheet in memory already, and the constrained path keeps everything small.
const (
	DefaultCSVBatchSize         = 1000
	DefaultWorkbookBatchSize    = 500
	DefaultConstrainedBatchSize = 100

	// DefaultSizeThreshold is the blob size at which workbook processing
	// switches to the constrained strategy. Parsed workbooks carry heavy
	// per-row object overhead; past this point holding the whole parse
	// risks the process's memory budget.
	DefaultSizeThreshold = 30 * 1024 * 1024

	// DefaultRowBuffer is the bounded channel capacity between parser and
	// flusher. The parser blocks when the sink falls behind — backpressure
	// instead of unbounded buffering.
	DefaultRowBuffer = 256
)

// Config tunes the processor. Zero values fall back to the defaults above.
type Config struct {
	CSVBatchSize         int
	WorkbookBatchSize    int
	ConstrainedBatchSize int
	SizeThreshold        int64
	RowBuffer            int
	ScratchDir           string // "" means the OS temp dir
}

func (c Config) withDefaults() Config {
	if c.CSVBatchSize <= 0 {
		c.CSVBatchSize = DefaultCSVBatchSize
	}
	if c.WorkbookBatchSize <= 0 {
		c.WorkbookBatchSize = DefaultWorkbookBatchSize
	}
	if c.ConstrainedBatchSize <= 0 {
		c.ConstrainedBatchSize = DefaultConstrainedBatchSize
	}
	if c.SizeThreshold <= 0 {
		c.SizeThreshold = DefaultSizeThreshold
	}
	if c.RowBuffer <= 0 {
		c.RowBuffer = DefaultRowBuffer
	}
	return c
}

// JobSpec is everything the caller supplies for one file: the template whose
// fields define the output shape, the header-to-field mapping produced by
// the mapping UI, and an optional declared source encoding.
type JobSpec struct {
	Template template.Template `json:"template"`
	Mapping  template.Mapping  `json:"mapping"`
	Encoding string            `json:"encoding,omitempty"`
}

// ProgressFunc receives row and byte counts as processing advances. May be nil.
type ProgressFunc func(rows int, bytesRead int64)

// Processor runs the streaming transformation for single files. Safe for
// concurrent use; all per-file state lives on the stack of Process.
type Processor struct {
	store   blob.Store
	sniffer *sniff.Sniffer
	headers *header.Extractor
	cfg     Config
}

// NewProcessor creates a Processor. The extractor supplies the reference
// header set used to accept or skip workbook sheets.
func NewProcessor(store blob.Store, headers *header.Extractor, cfg Config) *Processor {
	return &Processor{
		store:   store,
		sniffer: sniff.New(store),
		headers: headers,
		cfg:     cfg.withDefaults(),
	}
}

// Process validates the blob, streams it through the mapping and coercion,
// and delivers batches to sink. On success the sink's Finalize has been
// called exactly once with the total row count. Any error aborts the file;
// batches already accepted are the sink's to reconcile.
func (p *Processor) Process(ctx context.Context, ref blob.Ref, spec JobSpec, sink Sink, prog ProgressFunc) (Outcome, error) {
	if len(spec.Mapping) == 0 {
		return Outcome{}, fmt.Errorf("job for %s has an empty field mapping", ref)
	}

	verdict, err := p.sniffer.Validate(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}
	if !verdict.Valid {
		return Outcome{}, sniff.Reject(verdict)
	}

	switch verdict.Kind {
	case sniff.KindDelimited:
		total, err := p.processDelimited(ctx, ref, spec, sink, prog)
		if err != nil {
			return Outcome{Strategy: StrategyStreaming}, err
		}
		return Outcome{TotalRows: total, Completed: true, Strategy: StrategyStreaming}, nil

	case sniff.KindWorkbook:
		total, strategy, err := p.processWorkbook(ctx, ref, spec, sink, prog)
		if err != nil {
			return Outcome{Strategy: strategy}, err
		}
		return Outcome{TotalRows: total, Completed: true, Strategy: strategy}, nil

	default:
		return Outcome{}, sniff.Reject(verdict)
	}
}

// strategyFor picks the workbook path from measured blob size.
func (p *Processor) strategyFor(size int64) Strategy {
	if size >= p.cfg.SizeThreshold {
		return StrategyConstrained
	}
	return StrategyNormal
}

// batcher accumulates typed records and flushes fixed-size batches to the
// sink, preserving row order. Remainders flush via final().
type batcher struct {
	sink  Sink
	size  int
	prog  ProgressFunc
	bytes func() int64

	batch Batch
	total int
}

func newBatcher(sink Sink, size int, prog ProgressFunc, bytes func() int64) *batcher {
	return &batcher{
		sink:  sink,
		size:  size,
		prog:  prog,
		bytes: bytes,
		batch: make(Batch, 0, size),
	}
}

func (b *batcher) add(ctx context.Context, rec TypedRecord) error {
	b.batch = append(b.batch, rec)
	if len(b.batch) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.batch) == 0 {
		return nil
	}
	if err := b.sink.Accept(ctx, b.batch); err != nil {
		return fmt.Errorf("sink rejected batch at row %d: %w", b.total, err)
	}
	b.total += len(b.batch)
	b.batch = make(Batch, 0, b.size)
	b.report()
	return nil
}

func (b *batcher) report() {
	if b.prog == nil {
		return
	}
	var n int64
	if b.bytes != nil {
		n = b.bytes()
	}
	b.prog(b.total, n)
}

// final flushes the remainder. The caller invokes Finalize afterwards.
func (b *batcher) final(ctx context.Context) (int, error) {
	if err := b.flush(ctx); err != nil {
		return b.total, err
	}
	return b.total, nil
}

func logSkippedSheet(ref blob.Ref, sheet string) {
	slog.Warn("sheet headers do not match reference header set, skipping sheet",
		"blob", ref.String(),
		"sheet", sheet,
	)
}
