package storage

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const memoryURLPrefix = "mem://"

// MemoryStore is an in-process BlobStore. Puts and deletes can be made to
// fail, and every delete attempt is recorded, which makes it the store used
// when exercising cleanup paths.
type MemoryStore struct {
	mu          sync.Mutex
	blobs       map[string][]byte
	types       map[string]string
	deleteCalls []string
	putErr      error
	deleteErr   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: map[string][]byte{},
		types: map[string]string{},
	}
}

// FailPuts makes every following Put return err. Pass nil to recover.
func (m *MemoryStore) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// FailDeletes makes every following Delete return err. Pass nil to recover.
func (m *MemoryStore) FailDeletes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	if _, ok := m.blobs[key]; ok {
		return "", ErrBlobExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.WithStack(err)
	}
	m.blobs[key] = data
	m.types[key] = contentType
	return memoryURLPrefix + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, url)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if !strings.HasPrefix(url, memoryURLPrefix) {
		return errors.Wrap(ErrForeignURL, url)
	}
	delete(m.blobs, strings.TrimPrefix(url, memoryURLPrefix))
	return nil
}

func (m *MemoryStore) Stat(_ context.Context, url string) (*BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.TrimPrefix(url, memoryURLPrefix)
	data, ok := m.blobs[key]
	if !ok {
		return nil, errors.Errorf("blob %s not found", url)
	}
	return &BlobInfo{SizeBytes: int64(len(data)), ContentType: m.types[key]}, nil
}

// Has reports whether url currently points at a stored blob.
func (m *MemoryStore) Has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[strings.TrimPrefix(url, memoryURLPrefix)]
	return ok
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// DeleteCalls returns every URL Delete was called with, in order, including
// calls that failed.
func (m *MemoryStore) DeleteCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deleteCalls))
	copy(out, m.deleteCalls)
	return out
}
