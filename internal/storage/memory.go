package storage

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MemoryBlobStorage keeps reports in memory. Used for local development and tests.
type MemoryBlobStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	logger  *zap.Logger
}

// NewMemoryBlobStorage creates an empty in-memory store
func NewMemoryBlobStorage(logger *zap.Logger) *MemoryBlobStorage {
	return &MemoryBlobStorage{
		objects: make(map[string][]byte),
		logger:  logger,
	}
}

// UploadPDF stores a copy of data
func (m *MemoryBlobStorage) UploadPDF(ctx context.Context, filename string, data []byte) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	blobName := reportBlobName(filename)
	m.objects[blobName] = append([]byte(nil), data...)

	m.logger.Debug("report stored in memory", zap.String("blob_name", blobName), zap.Int("size_bytes", len(data)))
	return blobName, nil
}

// DownloadPDF returns a copy of a stored report
func (m *MemoryBlobStorage) DownloadPDF(ctx context.Context, blobName string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[blobName]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", blobName)
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of stored objects
func (m *MemoryBlobStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
