package sink

import (
	"context"
	"sync"

	"ledgerflow/internal/ingest"
)

// Memory accumulates batches in process memory. It backs development mode
// and tests where no database is configured.
type Memory struct {
	mu        sync.Mutex
	batches   []ingest.Batch
	total     int
	finalized bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Accept(_ context.Context, batch ingest.Batch) error {
	cp := make(ingest.Batch, len(batch))
	copy(cp, batch)

	m.mu.Lock()
	m.batches = append(m.batches, cp)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Finalize(_ context.Context, totalRows int) error {
	m.mu.Lock()
	m.total = totalRows
	m.finalized = true
	m.mu.Unlock()
	return nil
}

// Batches returns the accepted batches in delivery order.
func (m *Memory) Batches() []ingest.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// Total reports the finalized row count and whether Finalize has run.
func (m *Memory) Total() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, m.finalized
}
