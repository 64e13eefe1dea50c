// mock_storage.go - In-memory file area for testing
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/storage"
)

// MockStorage implements storage.Store in memory
type MockStorage struct {
	files    map[string]*models.StoredFile
	fileData map[string][]byte
	mu       sync.RWMutex

	// SaveErr, when set, is returned by every Save call
	SaveErr error
}

// NewMockStorage creates an empty mock file area
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.StoredFile),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.StoredFile, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	storageName := generateTestID() + strings.ToLower(filepath.Ext(name))
	file := &models.StoredFile{
		StorageName:  storageName,
		OriginalName: name,
		Size:         int64(len(data)),
		StoredAt:     time.Now(),
	}
	m.files[storageName] = file
	m.fileData[storageName] = data

	copied := *file
	return &copied, nil
}

func (m *MockStorage) Open(storageName string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[storageName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, storageName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) Path(storageName string) (string, error) {
	if storageName == "" || storageName != filepath.Base(storageName) {
		return "", storage.ErrInvalidName
	}
	return "/mock/uploads/" + storageName, nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// AddFile stores data directly under storageName
func (m *MockStorage) AddFile(storageName string, originalName string, data []byte) *models.StoredFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &models.StoredFile{
		StorageName:  storageName,
		OriginalName: originalName,
		Size:         int64(len(data)),
		StoredAt:     time.Now(),
	}
	m.files[storageName] = file
	m.fileData[storageName] = data
	return file
}

// GetFileData returns the stored content
func (m *MockStorage) GetFileData(storageName string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[storageName]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

// GetFileCount returns the number of stored files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-file-%d", testIDCounter)
}
