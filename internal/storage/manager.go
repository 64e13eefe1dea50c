package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoice-intake/backend/internal/models"
)

var (
	// ErrInvalidName is returned for storage names that would escape the upload dir.
	ErrInvalidName = errors.New("invalid storage name")
	// ErrNotFound is returned when no file has the storage name.
	ErrNotFound = errors.New("file not found")
)

// Store defines the interface for the uploaded-file area.
type Store interface {
	Save(name string, r io.Reader) (*models.StoredFile, error)
	Open(storageName string) (io.ReadCloser, error)
	Path(storageName string) (string, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	uploadDir string
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &LocalStore{uploadDir: uploadDir}, nil
}

// Save writes r under a fresh storage name that keeps the original extension.
func (s *LocalStore) Save(name string, r io.Reader) (*models.StoredFile, error) {
	storageName := uuid.New().String() + strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.uploadDir, storageName)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing file: %w", err)
	}

	return &models.StoredFile{
		StorageName:  storageName,
		OriginalName: name,
		Size:         size,
		StoredAt:     time.Now(),
	}, nil
}

// Open returns the stored bytes for reading.
func (s *LocalStore) Open(storageName string) (io.ReadCloser, error) {
	path, err := s.Path(storageName)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, storageName)
	}
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// Path returns the absolute path of a stored file.
func (s *LocalStore) Path(storageName string) (string, error) {
	if storageName == "" || storageName != filepath.Base(storageName) || storageName == "." || storageName == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, storageName)
	}
	return filepath.Join(s.uploadDir, storageName), nil
}

var _ Store = (*LocalStore)(nil)
