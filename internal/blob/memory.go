package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemStore is an in-memory Store used in tests and local development
// (STORAGE_BACKEND=memory). Range semantics match the S3 implementation,
// including suffix ranges.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Put seeds an object directly. Convenience for tests.
func (m *MemStore) Put(ref Ref, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref.CacheKey()] = append([]byte(nil), data...)
}

func (m *MemStore) get(ref Ref) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[ref.CacheKey()]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", ref)
	}
	return data, nil
}

func (m *MemStore) Download(_ context.Context, ref Ref) (io.ReadCloser, error) {
	data, err := m.get(ref)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemStore) DownloadRange(_ context.Context, ref Ref, from, to int64) (io.ReadCloser, error) {
	data, err := m.get(ref)
	if err != nil {
		return nil, err
	}

	n := int64(len(data))
	switch {
	case from < 0: // suffix range: last -from bytes
		start := n + from
		if start < 0 {
			start = 0
		}
		data = data[start:]
	case to < 0: // open-ended
		if from > n {
			from = n
		}
		data = data[from:]
	default:
		if from > n {
			from = n
		}
		end := to + 1
		if end > n {
			end = n
		}
		data = data[from:end]
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemStore) Upload(_ context.Context, ref Ref, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref.CacheKey()] = data
	return nil
}

func (m *MemStore) Size(_ context.Context, ref Ref) (int64, error) {
	data, err := m.get(ref)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
