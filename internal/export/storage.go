package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage saves rendered downloads
type Storage interface {
	// Save writes the download and returns where it was written
	Save(d Download) (string, error)

	// Get reads back a saved file by name
	Get(filename string) ([]byte, error)
}

// LocalStorage implements the Storage interface using a local directory
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save writes the download under its own file name, replacing an earlier export
func (l *LocalStorage) Save(d Download) (string, error) {
	path := filepath.Join(l.basePath, filepath.Base(d.Filename))
	if err := os.WriteFile(path, d.Data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}
