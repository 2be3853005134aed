package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/trainlog/internal/modules/runlog"
)

// MockRepository is an in-memory runlog.Repository with error injection.
type MockRepository struct {
	mu      sync.RWMutex
	records map[runlog.Key]*runlog.Record
	errs    map[runlog.Key]error
	putErr  error
	Puts    int
}

// NewMockRepository creates an empty mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		records: make(map[runlog.Key]*runlog.Record),
		errs:    make(map[runlog.Key]error),
	}
}

// SetRecord stores a copy of record under key without validation.
func (m *MockRepository) SetRecord(key runlog.Key, record *runlog.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = record.Clone()
}

// SetGetError makes Get fail for key.
func (m *MockRepository) SetGetError(key runlog.Key, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key] = err
}

// SetPutError makes every Put fail.
func (m *MockRepository) SetPutError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// Put implements runlog.RecordWriter
func (m *MockRepository) Put(_ context.Context, key runlog.Key, record *runlog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.Puts++
	m.records[key] = record.Clone()
	return nil
}

// Get implements runlog.RecordReader. Stored records are validated the same
// way the real repositories validate them.
func (m *MockRepository) Get(_ context.Context, key runlog.Key) (*runlog.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	record, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", runlog.ErrMissingRun, key)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("run %s: %w", key, err)
	}
	return record.Clone(), nil
}

// List implements runlog.RecordReader
func (m *MockRepository) List(_ context.Context) ([]runlog.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]runlog.Key, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// Delete implements runlog.Repository
func (m *MockRepository) Delete(_ context.Context, key runlog.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		return fmt.Errorf("%w: %s", runlog.ErrMissingRun, key)
	}
	delete(m.records, key)
	return nil
}
