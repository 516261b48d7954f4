package store

import (
	"context"
	"sync"
)

// Backend is durable storage for the selector record.
//
// Put must read the latest stored record, replace (or drop) the page's entry
// and write the record back as one step with respect to other Puts on the
// same backend.
type Backend interface {
	Get(ctx context.Context, page string) ([]string, error)
	Put(ctx context.Context, page string, selectors []string) error
}

// Memory keeps the record as JSON bytes in memory.
type Memory struct {
	mu  sync.Mutex
	raw []byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Get(_ context.Context, page string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decodeSelectors(decodeRecord(m.raw)[page]), nil
}

func (m *Memory) Put(_ context.Context, page string, selectors []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := applyPut(m.raw, page, selectors)
	if err != nil {
		return err
	}
	m.raw = raw
	return nil
}

// Raw returns the stored record.
func (m *Memory) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.raw...)
}

// SetRaw replaces the stored record verbatim.
func (m *Memory) SetRaw(raw []byte) {
	m.mu.Lock()
	m.raw = append([]byte(nil), raw...)
	m.mu.Unlock()
}
