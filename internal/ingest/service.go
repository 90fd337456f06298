package ingest

// service.go runs ingestions asynchronously. StartIngestion returns a job id
// immediately; the work happens on a background goroutine holding a limiter
// slot, with panic recovery so a slot is never leaked. Completed jobs stay
// queryable for a retention window, then drop out of the map.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerflow/internal/blob"
)

// DefaultJobTimeout bounds a single ingestion end to end.
const DefaultJobTimeout = 15 * time.Minute

// DefaultJobRetention is how long a finished job stays queryable.
const DefaultJobRetention = 5 * time.Minute

type job struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	progress Progress
	result   *Result
}

func (j *job) setProgress(p Progress) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
}

// Service coordinates concurrent ingestion jobs over one Processor.
type Service struct {
	processor *Processor
	limiter   *Limiter

	jobTimeout time.Duration
	retention  time.Duration

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewService wraps processor with job tracking and a concurrency limiter.
// Zero timeout or retention fall back to the package defaults.
func NewService(processor *Processor, limiter *Limiter, jobTimeout, retention time.Duration) *Service {
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return &Service{
		processor:  processor,
		limiter:    limiter,
		jobTimeout: jobTimeout,
		retention:  retention,
		jobs:       make(map[string]*job),
	}
}

// StartIngestion begins processing ref in the background and returns the job
// id. Returns ErrTooManyJobs when every slot stays occupied past the wait
// timeout.
func (s *Service) StartIngestion(ctx context.Context, ref blob.Ref, spec JobSpec, sink Sink) (string, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)

	j := &job{
		id:     jobID,
		cancel: cancel,
		done:   make(chan struct{}),
		progress: Progress{
			JobID: jobID,
			Phase: PhaseStarting,
		},
	}

	s.mu.Lock()
	s.jobs[jobID] = j
	s.mu.Unlock()

	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in ingestion",
					"job_id", jobID,
					"blob", ref.String(),
					"panic", r,
				)
				s.finish(j, Result{
					JobID: jobID,
					Error: fmt.Sprintf("internal error: %v", r),
				})
			}
		}()
		s.run(jobCtx, j, ref, spec, sink)
	}()

	return jobID, nil
}

func (s *Service) run(ctx context.Context, j *job, ref blob.Ref, spec JobSpec, sink Sink) {
	started := time.Now()

	j.setProgress(Progress{JobID: j.id, Phase: PhaseValidating})

	prog := func(rows int, bytesRead int64) {
		j.setProgress(Progress{
			JobID:     j.id,
			Phase:     PhaseStreaming,
			Rows:      rows,
			BytesRead: bytesRead,
		})
	}

	outcome, err := s.processor.Process(ctx, ref, spec, sink, prog)
	result := Result{
		JobID:    j.id,
		Outcome:  outcome,
		Duration: time.Since(started),
	}
	if err != nil {
		result.Error = err.Error()
		slog.Error("ingestion failed",
			"job_id", j.id,
			"blob", ref.String(),
			"error", err,
		)
	} else {
		slog.Info("ingestion complete",
			"job_id", j.id,
			"blob", ref.String(),
			"rows", outcome.TotalRows,
			"strategy", outcome.Strategy,
			"duration", result.Duration,
		)
	}
	s.finish(j, result)
}

func (s *Service) finish(j *job, result Result) {
	phase := PhaseComplete
	if result.Error != "" {
		phase = PhaseFailed
	}

	j.mu.Lock()
	j.result = &result
	j.progress = Progress{
		JobID:     j.id,
		Phase:     phase,
		Rows:      result.Outcome.TotalRows,
		BytesRead: j.progress.BytesRead,
		Error:     result.Error,
	}
	j.mu.Unlock()
	close(j.done)

	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.jobs, j.id)
		s.mu.Unlock()
	})
}

func (s *Service) lookup(jobID string) (*job, error) {
	s.mu.RLock()
	j, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return j, nil
}

// Progress returns the current snapshot without blocking.
func (s *Service) Progress(jobID string) (Progress, error) {
	j, err := s.lookup(jobID)
	if err != nil {
		return Progress{}, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress, nil
}

// Result blocks until the job finishes, then returns its terminal state.
func (s *Service) Result(ctx context.Context, jobID string) (Result, error) {
	j, err := s.lookup(jobID)
	if err != nil {
		return Result{}, err
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return *j.result, nil
}

// Cancel aborts a running job. The job transitions to failed with a context
// cancellation error once the pipeline unwinds.
func (s *Service) Cancel(jobID string) error {
	j, err := s.lookup(jobID)
	if err != nil {
		return err
	}
	j.cancel()
	return nil
}

// ActiveCount reports how many ingestions are running.
func (s *Service) ActiveCount() int {
	return s.limiter.ActiveCount()
}

// Drain blocks until running ingestions complete or ctx expires. Used at
// shutdown so accepted batches are finalized before the process exits.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
