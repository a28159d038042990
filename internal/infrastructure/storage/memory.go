package storage

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	appinv "github.com/mfgorder/backend/internal/application/inventory"
)

var (
	_ appinv.ObjectRemover   = (*MemoryObjectStore)(nil)
	_ appinv.ObjectURLSigner = (*MemoryObjectStore)(nil)
)

// MemoryObjectStore stands in for S3 when storage is disabled. It records
// deleted keys and hands out placeholder URLs.
type MemoryObjectStore struct {
	// BaseURL prefixes generated download URLs
	BaseURL string

	mu      sync.Mutex
	deleted []string
}

// NewMemoryObjectStore creates a new MemoryObjectStore
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{BaseURL: "https://storage.example.com"}
}

// DeleteObjects records the keys as deleted
func (s *MemoryObjectStore) DeleteObjects(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, compactKeys(keys)...)
	return nil
}

// GenerateDownloadURL returns a placeholder URL for the key
func (s *MemoryObjectStore) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	expiresAt := time.Now().Add(expiresIn)
	u := s.BaseURL + "/download/" + url.PathEscape(storageKey) + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// Deleted returns the keys deleted so far
func (s *MemoryObjectStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}
