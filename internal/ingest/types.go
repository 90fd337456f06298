// Package ingest is the streaming row transformer at the heart of the
// pipeline: it pulls a ledger file from object storage in bounded memory,
// parses records incrementally, applies the user's field mapping and
// per-field type coercion, and delivers fixed-size batches of typed records
// to a persistence sink.
//
// Memory, not CPU, is the binding constraint. Delimited text streams through
// an incremental parser; workbook containers choose between a whole-parse
// strategy and a constrained row-iterator strategy based on blob size.
// Batches flow through a bounded channel between parser and flusher, so the
// parser blocks when persistence falls behind instead of buffering the file.
package ingest

import (
	"context"
	"time"
)

// TypedRecord maps canonical field names to coerced values: string, float64,
// or a calendar-date string. Every record in a batch carries exactly the
// field set defined by the mapping's range.
type TypedRecord map[string]any

// Batch is the unit of delivery to the persistence sink: a bounded, ordered
// run of typed records in file row order.
type Batch []TypedRecord

// Sink is the external persistence collaborator. Accept is called once per
// flushed batch, in row order; Finalize exactly once after the final Accept
// returns, or not at all if processing fails. Delivery is at-least-once per
// batch: this package never rolls back batches already accepted.
type Sink interface {
	Accept(ctx context.Context, batch Batch) error
	Finalize(ctx context.Context, totalRows int) error
}

// Strategy names the workbook processing path chosen by blob size.
type Strategy string

const (
	// StrategyStreaming is the delimited-text pipeline.
	StrategyStreaming Strategy = "streaming"
	// StrategyNormal parses the whole workbook, trading memory for speed.
	StrategyNormal Strategy = "normal"
	// StrategyConstrained iterates rows one at a time with small batches,
	// bounding peak memory on large workbooks.
	StrategyConstrained Strategy = "constrained"
)

// Outcome is delivered once, terminally, per processed file.
type Outcome struct {
	TotalRows int      `json:"totalRows"`
	Completed bool     `json:"completed"`
	Strategy  Strategy `json:"strategy"`
}

// Phase is the stage an ingestion job is in.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseValidating Phase = "validating"
	PhaseStreaming  Phase = "streaming"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// Progress is a snapshot of a running job's state.
type Progress struct {
	JobID     string `json:"jobId"`
	Phase     Phase  `json:"phase"`
	Rows      int    `json:"rows"`
	BytesRead int64  `json:"bytesRead"`
	Error     string `json:"error,omitempty"`
}

// Result is the terminal state of a job.
type Result struct {
	JobID    string        `json:"jobId"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
