package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileStorage keeps files in memory. It is used by tests and by the
// "mock" storage type.
type MockFileStorage struct {
	mu    sync.RWMutex
	files map[string]FileInfo
	data  map[string][]byte

	// failures makes the next n Store calls fail with a retryable error
	failures int
	stores   int
}

// NewMockFileStorage creates a new MockFileStorage instance
func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{
		files: make(map[string]FileInfo),
		data:  make(map[string][]byte),
	}
}

// FailNextStores makes the next n Store calls fail with ErrUnavailable
func (m *MockFileStorage) FailNextStores(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// Store implements FileStorage
func (m *MockFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("store", key, err, false)
	}
	if opts == nil {
		opts = &StoreOptions{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stores++
	if m.failures > 0 {
		m.failures--
		return NewStorageError("store", key, ErrUnavailable, true)
	}

	if _, exists := m.files[key]; exists && !opts.Overwrite {
		return NewStorageError("store", key, ErrFileAlreadyExists, false)
	}

	metadata := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	m.files[key] = FileInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		LastModified: time.Now().UTC(),
		Metadata:     metadata,
	}
	m.data[key] = append([]byte(nil), data...)

	return nil
}

// Retrieve implements FileStorage
func (m *MockFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.data[key]
	if !exists {
		return nil, NewStorageError("retrieve", key, ErrFileNotFound, false)
	}
	return append([]byte(nil), data...), nil
}

// Delete implements FileStorage
func (m *MockFileStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[key]; !exists {
		return NewStorageError("delete", key, ErrFileNotFound, false)
	}
	delete(m.files, key)
	delete(m.data, key)
	return nil
}

// Exists implements FileStorage
func (m *MockFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.files[key]
	return exists, nil
}

// List implements FileStorage
func (m *MockFileStorage) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []FileInfo
	for key, info := range m.files {
		if strings.HasPrefix(key, prefix) {
			files = append(files, info)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Close implements FileStorage
func (m *MockFileStorage) Close() error {
	return nil
}

// FileCount returns the number of stored files
func (m *MockFileStorage) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// HasFile checks if a file exists (without error handling)
func (m *MockFileStorage) HasFile(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[key]
	return exists
}

// StoreCalls returns how many times Store was called, failed calls included
func (m *MockFileStorage) StoreCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores
}
